package render

import (
	"cmp"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"slices"
)

const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
<ul>
{{- range .Links}}
<li><a href="{{.Href}}">{{.Name}}</a></li>
{{- end}}
</ul>
</body>
</html>
`

var indexTmpl = template.Must(template.New("index").Parse(indexTemplate))

type indexLink struct {
	Href string
	Name string
}

// WriteIndex writes a page linking every file in files. Links are relative to
// root and sorted by path.
func WriteIndex(w io.Writer, root string, files []string) error {
	links := make([]indexLink, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			return fmt.Errorf("resolving '%s': %w", f, err)
		}
		links = append(links, indexLink{Href: filepath.ToSlash(rel), Name: filepath.Base(f)})
	}
	slices.SortFunc(links, func(a, b indexLink) int {
		return cmp.Compare(a.Href, b.Href)
	})

	data := struct {
		Title string
		Links []indexLink
	}{
		Title: "Survey maps in " + filepath.Base(root),
		Links: links,
	}

	if err := indexTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("executing index template: %w", err)
	}
	return nil
}
