package texts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vogonweb/vogon/pkg/apperror"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace only", " \n\t", " \n\t"},
		{
			name:  "preserves whitespace",
			input: "Don't  panic\nnow",
			want:  `<word id="1">Don&#39;t</word>  <word id="2">panic</word>` + "\n" + `<word id="3">now</word>`,
		},
		{
			name:  "escapes markup",
			input: "<b>bold</b>",
			want:  `<word id="1">&lt;b&gt;bold&lt;/b&gt;</word>`,
		},
		{
			name:  "unicode",
			input: " Zaphod Beeblebrox über ",
			want:  ` <word id="1">Zaphod</word> <word id="2">Beeblebrox</word>` + " " + `<word id="3">über</word> `,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.input))
		})
	}
}

func TestTokenize_SequentialIDs(t *testing.T) {
	words := strings.Fields(strings.Repeat("so long and thanks for all the fish ", 25))
	out := Tokenize(strings.Join(words, " "))

	ids := regexp.MustCompile(`<word id="(\d+)">`).FindAllStringSubmatch(out, -1)
	require.Len(t, ids, len(words))
	for i, m := range ids {
		assert.Equal(t, fmt.Sprint(i+1), m[1])
	}
	assert.Equal(t, len(words), TokenCount(out))
}

func TestBackfillDocumentType(t *testing.T) {
	assert.Equal(t, "PT", BackfillDocumentType(`<word id="1">x</word>`, ""))
	assert.Equal(t, "PT", BackfillDocumentType("x", "IM"))
	assert.Equal(t, "IM", BackfillDocumentType("", "IM"))
	assert.Equal(t, "", BackfillDocumentType("", ""))
}

// parents maps text id to its part_of id.
type parents map[string]string

func (p parents) lookup(_ context.Context, id string) (*string, error) {
	if v, ok := p[id]; ok {
		return &v, nil
	}
	return nil, nil
}

func TestCheckPartOf(t *testing.T) {
	// chapter1 -> book -> series
	tree := parents{"chapter1": "book", "book": "series"}

	tests := []struct {
		name      string
		id        string
		parent    string
		wantCycle bool
	}{
		{"new leaf", "chapter2", "book", false},
		{"move under unrelated root", "series", "other", false},
		{"self", "book", "book", true},
		{"direct child", "book", "chapter1", true},
		{"grandchild", "series", "chapter1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkPartOf(context.Background(), tt.id, tt.parent, tree.lookup)
			if tt.wantCycle {
				assert.ErrorIs(t, err, apperror.ErrPartOfCycle)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckPartOf_ExistingCycleTerminates(t *testing.T) {
	tree := parents{"a": "b", "b": "a"}
	err := checkPartOf(context.Background(), "x", "a", tree.lookup)
	assert.ErrorIs(t, err, apperror.ErrPartOfCycle)
}

func TestCheckPartOf_LookupError(t *testing.T) {
	boom := errors.New("boom")
	err := checkPartOf(context.Background(), "x", "a", func(context.Context, string) (*string, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestNewPlainText(t *testing.T) {
	hidden := false
	txt := newPlainText(CreateRequest{Title: " Guide ", Content: "Mostly harmless", Public: &hidden})

	assert.Equal(t, "Guide", txt.Title)
	assert.True(t, strings.HasPrefix(txt.URI, "urn:vogon:text:"))
	require.NotNil(t, txt.DocumentType)
	assert.Equal(t, DocumentTypePlainText, *txt.DocumentType)
	assert.Equal(t, 2, TokenCount(txt.TokenizedContent))
	assert.False(t, txt.Public)

	txt = newPlainText(CreateRequest{Title: "x", Content: "y", URI: "http://example.org/t/1"})
	assert.Equal(t, "http://example.org/t/1", txt.URI)
	assert.True(t, txt.Public)
}

func TestCanModify(t *testing.T) {
	owner := "u-1"
	txt := &Text{AddedBy: &owner}
	assert.True(t, canModify(txt, "u-1", false))
	assert.False(t, canModify(txt, "u-2", false))
	assert.True(t, canModify(txt, "u-2", true))
	assert.False(t, canModify(&Text{}, "u-1", false))
}
