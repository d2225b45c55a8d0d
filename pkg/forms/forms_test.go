package forms

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var uploadFields = []Field{
	{Name: "title", Title: "Title"},
	{Name: "uri", Title: "URI"},
	{Name: "ispublic", Title: "Make this text public", Bool: true},
	{Name: "document_type", Title: "Document type", Choices: []Choice{
		{Value: "PT", Label: "Plain text"},
		{Value: "IM", Label: "Image"},
		{Value: "HP", Label: "Hypertext"},
	}},
	{Name: "notes"},
}

func TestDisplayValues(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
		want   []Entry
	}{
		{
			name: "all fields",
			values: url.Values{
				"title":         {"Moby Dick"},
				"uri":           {"http://example.org/moby"},
				"ispublic":      {"on"},
				"document_type": {"PT"},
				"notes":         {"chapter 1"},
			},
			want: []Entry{
				{"Title", "Moby Dick"},
				{"URI", "http://example.org/moby"},
				{"Make this text public", "on"},
				{"Document type", "Plain text"},
				{"notes", "chapter 1"},
			},
		},
		{
			name: "empty values and unchecked bool omitted",
			values: url.Values{
				"title":    {"Moby Dick"},
				"uri":      {"  "},
				"ispublic": {"off"},
				"notes":    {""},
			},
			want: []Entry{{"Title", "Moby Dick"}},
		},
		{
			name: "text fields keep literal zero and false",
			values: url.Values{
				"title": {"0"},
				"uri":   {"false"},
				"notes": {"off"},
			},
			want: []Entry{
				{"Title", "0"},
				{"URI", "false"},
				{"notes", "off"},
			},
		},
		{
			name:   "nothing submitted",
			values: url.Values{},
			want:   []Entry{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DisplayValues(Form{Fields: uploadFields, Values: tt.values})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDisplayValues_UnknownChoice(t *testing.T) {
	_, err := DisplayValues(Form{Fields: uploadFields, Values: url.Values{"document_type": {"XX"}}})
	assert.ErrorIs(t, err, ErrUnknownChoice)
	assert.ErrorContains(t, err, "document_type")
}

func TestDisplayValues_ChoiceValuesAreLabels(t *testing.T) {
	labels := map[string]bool{}
	for _, c := range uploadFields[3].Choices {
		labels[c.Label] = true
	}

	for _, v := range []string{"PT", "IM", "HP"} {
		got, err := DisplayValues(Form{Fields: uploadFields, Values: url.Values{"document_type": {v}}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, labels[got[0].Value], "value %q is not a declared label", got[0].Value)
	}
}

func TestDisplayValues_EntryCountMatchesPresentFields(t *testing.T) {
	values := url.Values{
		"title":    {"a"},
		"uri":      {"false"},
		"ispublic": {"1"},
		"notes":    {""},
	}
	got, err := DisplayValues(Form{Fields: uploadFields, Values: values})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestDisplayValues_BoolFieldFalsyValues(t *testing.T) {
	for _, v := range []string{"0", "false", "FALSE", "off", "Off"} {
		got, err := DisplayValues(Form{Fields: uploadFields, Values: url.Values{"ispublic": {v}}})
		require.NoError(t, err)
		assert.Empty(t, got, "value %q", v)
	}
}
