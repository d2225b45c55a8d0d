package web

import (
	"fmt"

	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/vogonweb/vogon/pkg/auth"
)

// PageConfig is the per-page part of the layout.
type PageConfig struct {
	Title string
	User  *auth.AuthUser
	// Scripts are appended after the content.
	Scripts []g.Node
}

// Layout wraps content in the common page shell.
func Layout(site SiteContext, page PageConfig, content ...g.Node) g.Node {
	title := "Vogon"
	if page.Title != "" {
		title = page.Title + " | Vogon"
	}

	return g.Group([]g.Node{
		g.Raw("<!DOCTYPE html>"),
		HTML(
			Lang("en"),
			Head(
				Meta(Charset("utf-8")),
				Meta(Name("viewport"), Content("width=device-width, initial-scale=1.0")),
				TitleEl(g.Text(title)),
				Link(Rel("stylesheet"), Href(site.URL("/static/styles.css"))),
				g.If(site.AnalyticsID != "", analytics(site.AnalyticsID)),
			),
			Body(
				topbar(site, page.User),
				Main(Class("container"), g.Group(content)),
				pageFooter(site),
				g.Group(page.Scripts),
			),
		),
	})
}

func analytics(id string) g.Node {
	return g.Group([]g.Node{
		Script(g.Attr("async"), Src("https://www.googletagmanager.com/gtag/js?id="+id)),
		Script(g.Raw(fmt.Sprintf(
			"window.dataLayer=window.dataLayer||[];function gtag(){dataLayer.push(arguments);}gtag('js',new Date());gtag('config',%q);",
			id,
		))),
	})
}

func topbar(site SiteContext, user *auth.AuthUser) g.Node {
	return Nav(
		Class("topbar"),
		A(Class("brand"), Href(site.URL("/")), g.Text("Vogon")),
		g.If(user != nil, g.Group([]g.Node{
			A(Href(site.URL("/texts/upload")), g.Text("Upload text")),
			A(Href(site.URL("/concepts/new")), g.Text("New concept")),
			Form(Method("post"), Action(site.URL("/logout")), Class("inline"),
				Button(Type("submit"), g.Text("Log out")),
			),
		})),
		g.If(user == nil, A(Href(site.URL("/login")), g.Text("Log in"))),
	)
}

func pageFooter(site SiteContext) g.Node {
	return Footer(
		Class("footer"),
		P(g.Text("Vogon"), g.If(site.Version != "", Span(Class("version"), g.Text(" "+site.Version)))),
	)
}
