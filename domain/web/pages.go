package web

import (
	"encoding/json"
	"time"

	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/vogonweb/vogon/domain/concepts"
	"github.com/vogonweb/vogon/domain/texts"
	"github.com/vogonweb/vogon/pkg/auth"
	"github.com/vogonweb/vogon/pkg/forms"
)

// ForbiddenPage is the fixed 403 page.
func ForbiddenPage(site SiteContext, userID string) g.Node {
	return Layout(site, PageConfig{Title: "Forbidden"},
		H1(g.Text("403 Forbidden")),
		P(g.Text("You do not have permission to view this page.")),
		g.If(userID != "", P(Class("muted"), g.Text("Signed in as user "), Code(g.Text(userID)))),
	)
}

// LoginPage renders the login form. errMsg is shown above the form when set.
func LoginPage(site SiteContext, next, username, errMsg string) g.Node {
	return Layout(site, PageConfig{Title: "Log in"},
		H1(g.Text("Log in")),
		g.If(errMsg != "", P(Class("error"), g.Text(errMsg))),
		Form(
			Method("post"), Action(site.URL("/login")),
			Input(Type("hidden"), Name("next"), Value(next)),
			field("username", "Username", Input(ID("username"), Name("username"), Type("text"), Value(username), Required())),
			field("password", "Password", Input(ID("password"), Name("password"), Type("password"), Required())),
			Button(Type("submit"), g.Text("Log in")),
		),
	)
}

// annotatorConfig is handed to the annotation client as JSON.
type annotatorConfig struct {
	TextID    string             `json:"textId"`
	UserID    string             `json:"userId"`
	ProjectID string             `json:"projectId,omitempty"`
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expiresAt"`
	APIBase   string             `json:"apiBase"`
	Projects  []texts.ProjectRef `json:"projects"`
}

// AnnotatePage renders a text for annotation. The tokenized content is
// already escaped by the tokenizer.
func AnnotatePage(site SiteContext, user *auth.AuthUser, t *texts.Text, cfg annotatorConfig) g.Node {
	data, _ := json.Marshal(cfg)
	return Layout(site, PageConfig{
		Title: t.Title,
		User:  user,
		Scripts: []g.Node{
			Script(Type("application/json"), ID("annotator-config"), g.Raw(string(data))),
			Script(Type("module"), Src(site.URL("/static/js/annotator.js"))),
		},
	},
		H1(g.Text(t.Title)),
		g.If(len(cfg.Projects) > 0, P(Class("muted"),
			g.Text("Projects: "),
			g.Map(cfg.Projects, func(p texts.ProjectRef) g.Node {
				return Span(Class("project"), g.Attr("data-project-id", p.ID), g.Text(p.Name+" "))
			}),
		)),
		Div(
			ID("text-content"),
			Class("text-content"),
			g.Attr("data-text-id", t.ID),
			g.Attr("data-user-id", user.ID),
			g.Raw(t.TokenizedContent),
		),
	)
}

// UploadPage renders the plain text upload form.
func UploadPage(site SiteContext, user *auth.AuthUser, errMsg string) g.Node {
	return Layout(site, PageConfig{Title: "Upload text", User: user},
		H1(g.Text("Upload text")),
		g.If(errMsg != "", P(Class("error"), g.Text(errMsg))),
		Form(
			Method("post"), Action(site.URL("/texts/upload")),
			field("title", "Title", Input(ID("title"), Name("title"), Type("text"), Required())),
			field("uri", "Source URI", Input(ID("uri"), Name("uri"), Type("url"))),
			choiceField("visibility", "Visibility", visibilityChoices, "private"),
			field("content", "Content", Textarea(ID("content"), Name("content"), Rows("20"), Required())),
			Button(Type("submit"), g.Text("Upload")),
		),
	)
}

// ConceptPage renders the concept submission form.
func ConceptPage(site SiteContext, user *auth.AuthUser, types []forms.Choice, errMsg string) g.Node {
	return Layout(site, PageConfig{Title: "New concept", User: user},
		H1(g.Text("New concept")),
		g.If(errMsg != "", P(Class("error"), g.Text(errMsg))),
		Form(
			Method("post"), Action(site.URL("/concepts/new")),
			field("label", "Label", Input(ID("label"), Name("label"), Type("text"), Required())),
			choiceField("type", "Type", append([]forms.Choice{{Value: "", Label: "(none)"}}, types...), ""),
			field("uri", "URI", Input(ID("uri"), Name("uri"), Type("url"))),
			field("description", "Description", Textarea(ID("description"), Name("description"), Rows("4"))),
			Button(Type("submit"), g.Text("Submit for review")),
		),
	)
}

// ConfirmationPage lists what was submitted after a successful upload or
// concept submission.
func ConfirmationPage(site SiteContext, user *auth.AuthUser, title string, entries []forms.Entry, links ...g.Node) g.Node {
	return Layout(site, PageConfig{Title: title, User: user},
		H1(g.Text(title)),
		Dl(Class("submitted"),
			g.Map(entries, func(e forms.Entry) g.Node {
				return g.Group([]g.Node{Dt(g.Text(e.Title)), Dd(g.Text(e.Value))})
			}),
		),
		P(g.Group(links)),
	)
}

func conceptStatus(c *concepts.Concept) string {
	return "Your concept is " + c.State + " until a curator reviews it."
}

func field(id, label string, input g.Node) g.Node {
	return Div(Class("field"),
		Label(For(id), g.Text(label)),
		input,
	)
}

func choiceField(id, label string, choices []forms.Choice, selected string) g.Node {
	return field(id, label, Select(ID(id), Name(id),
		g.Map(choices, func(c forms.Choice) g.Node {
			return Option(Value(c.Value), g.If(c.Value == selected, Selected()), g.Text(c.Label))
		}),
	))
}
