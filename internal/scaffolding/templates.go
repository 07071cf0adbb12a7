package scaffolding

// ProjectTemplate is a named set of starter files.
type ProjectTemplate struct {
	Name        string
	Description string
	Files       []FileTemplate
}

// FileTemplate is one starter file. Content is rendered with <% %>
// delimiters so the html/template actions inside it are written verbatim.
type FileTemplate struct {
	Path    string
	Content string
}

// TemplateContext holds the values available to starter file content.
type TemplateContext struct {
	Title   string
	BaseURL string
	Date    string
}

// GetBuiltinTemplates returns all built-in project templates
func GetBuiltinTemplates() map[string]ProjectTemplate {
	return map[string]ProjectTemplate{
		"blog": {
			Name:        "blog",
			Description: "Index page listing published posts and one page per post",
			Files: []FileTemplate{
				{Path: "config.toml", Content: blogConfig},
				{Path: "templates/index.html", Content: blogIndex},
				{Path: "templates/post.html", Content: blogPost},
				{Path: "templates/partials/head.html", Content: head},
				{Path: "data/posts/hello-world.md", Content: helloWorld},
			},
		},
		"minimal": {
			Name:        "minimal",
			Description: "A single page and no data",
			Files: []FileTemplate{
				{Path: "config.toml", Content: minimalConfig},
				{Path: "templates/index.html", Content: minimalIndex},
			},
		},
	}
}

const blogConfig = `[site]
title = <% printf "%q" .Title %>
base_url = <% printf "%q" .BaseURL %>

[build]
output_dir = "public"
templates_dir = "templates"
data_dir = "data"
debounce = "1s"

[[data]]
name = "posts"
collection = "posts"
when_is = { key = "status", equals = "published" }
sort = { key = "date", order = "desc" }

[[data]]
name = "latest"
collection = "posts"
when_is = { key = "status", equals = "published" }
sort = { key = "date", order = "desc" }
first = true

[[pages]]
template = "index.html"
page = { path = "index.html" }

[[pages]]
template = "post.html"
collection = "posts"
page = { path = "blog/{slug}/index.html" }
`

const head = `{{ define "head" }}<head>
  <meta charset="utf-8">
  <title>{{ . }}</title>
</head>{{ end }}
`

const blogIndex = `<!doctype html>
<html>
{{ template "head" .site.title }}
<body>
  <h1>{{ .site.title }}</h1>
  {{ with .latest }}<p>Latest: <a href="/blog/{{ .Data.slug }}/">{{ .Data.title }}</a></p>{{ end }}
  <ul>
  {{ range .posts }}
    <li>
      <a href="/blog/{{ .Data.slug }}/">{{ .Data.title }}</a>
      <time>{{ date "Jan 2, 2006" .Data.date }}</time>
      <p>{{ excerpt 30 .Data.content }}</p>
    </li>
  {{ else }}
    <li>Nothing published yet.</li>
  {{ end }}
  </ul>
</body>
</html>
`

const blogPost = `<!doctype html>
<html>
{{ template "head" .record.Data.title }}
<body>
  <p><a href="/">{{ .site.title }}</a></p>
  <article>
    <h1>{{ .record.Data.title }}</h1>
    <time>{{ date "January 2, 2006" .record.Data.date }}</time>
    {{ safe .record.Data.content }}
  </article>
</body>
</html>
`

const helloWorld = `---
title: Hello, world
slug: hello-world
date: <% .Date %>
status: published
---
This is the first post. Edit it in *data/posts/hello-world.md*, or add more
Markdown, YAML, TOML or JSON files next to it.
`

const minimalConfig = `[site]
title = <% printf "%q" .Title %>

[[pages]]
template = "index.html"
page = { path = "index.html" }
`

const minimalIndex = `<!doctype html>
<html>
<head><title>{{ .site.title }}</title></head>
<body>
  <h1>{{ .site.title }}</h1>
  <p>Built {{ .site.build_time }}</p>
</body>
</html>
`
