package demoserver

import (
	"fmt"
	"strings"
)

// PageVersion is one rendering of a page.
type PageVersion struct {
	HTML string
}

// PageDefinition holds all versions of a single page.
type PageDefinition struct {
	Path        string
	Description string
	Versions    map[int]PageVersion
}

// Findings lists the issue types a version 1 page is built to trigger, keyed
// by path.
var Findings = map[string][]string{
	"/":        {"title_too_short", "meta_desc_missing", "img_missing_alt", "render_blocking_js", "canonical_missing", "og_missing"},
	"/about":   {"heading_skip", "canonical_missing", "img_missing_dimensions", "og_missing"},
	"/blog":    {"h1_multiple", "title_too_long", "render_blocking_css", "og_missing"},
	"/contact": {"lang_missing", "viewport_missing", "font_no_swap", "og_missing", "meta_desc_too_short"},
}

// GetAllPages returns all demo page definitions.
func GetAllPages() []PageDefinition {
	return []PageDefinition{
		getHomePage(),
		getAboutPage(),
		getBlogPage(),
		getContactPage(),
	}
}

const nav = `<nav>
    <a href="/">Home</a> |
    <a href="/about">About</a> |
    <a href="/blog">Blog</a> |
    <a href="/contact">Contact</a>
</nav>`

// cleanPage renders a page that passes every rule.
func cleanPage(path, title, desc, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>%s</title>
    <meta name="description" content="%s">
    <link rel="canonical" href="%s">
    <meta property="og:title" content="%s">
    <meta property="og:description" content="%s">
    <meta property="og:image" content="/static/cover.png">
    <link rel="stylesheet" href="/static/style.css">
    <script src="/static/app.js" defer></script>
</head>
<body>
%s
%s
</body>
</html>`, title, desc, path, title, desc, nav, body)
}

const cleanDesc = "Pulse Outfitters builds durable trail gear and publishes field notes from every expedition we run."

// ===== HOME PAGE =====
func getHomePage() PageDefinition {
	return PageDefinition{
		Path:        "/",
		Description: "Home page with navigation and a hero image",
		Versions: map[int]PageVersion{
			1: {HTML: `<!DOCTYPE html>
<html lang="en">
<head>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Home</title>
    <script src="/static/app.js"></script>
</head>
<body>
` + nav + `
    <h1>Pulse Outfitters</h1>
    <img src="/static/hero.jpg" width="1200" height="600">
    <p>Gear for every trail. Read the <a href="/old-page">spring catalog</a>
    or see <a href="/moved">who we are</a>.</p>
</body>
</html>`},
			2: {HTML: cleanPage("/", "Pulse Outfitters | Durable Trail Gear", cleanDesc, `
    <h1>Pulse Outfitters</h1>
    <img src="/static/hero.jpg" alt="Hikers on a ridge" width="1200" height="600">
    <p>Gear for every trail.</p>`)},
		},
	}
}

// ===== ABOUT PAGE =====
func getAboutPage() PageDefinition {
	return PageDefinition{
		Path:        "/about",
		Description: "About page that skips a heading level",
		Versions: map[int]PageVersion{
			1: {HTML: `<!DOCTYPE html>
<html lang="en">
<head>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>About Pulse Outfitters and the Team</title>
    <meta name="description" content="` + cleanDesc + `">
</head>
<body>
` + nav + `
    <h1>About us</h1>
    <h3>Our story</h3>
    <img src="/static/team.jpg" alt="The team">
</body>
</html>`},
			2: {HTML: cleanPage("/about", "About Pulse Outfitters and the Team", cleanDesc, `
    <h1>About us</h1>
    <h2>Our story</h2>
    <img src="/static/team.jpg" alt="The team" width="800" height="400">`)},
		},
	}
}

// ===== BLOG PAGE =====
func getBlogPage() PageDefinition {
	return PageDefinition{
		Path:        "/blog",
		Description: "Blog index with duplicate H1s and blocking stylesheets",
		Versions: map[int]PageVersion{
			1: {HTML: `<!DOCTYPE html>
<html lang="en">
<head>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>` + strings.Repeat("Field Notes ", 7) + `</title>
    <meta name="description" content="` + cleanDesc + `">
    <link rel="canonical" href="/blog">
    <link rel="stylesheet" href="/static/base.css">
    <link rel="stylesheet" href="/static/blog.css">
    <link rel="stylesheet" href="/static/theme.css">
</head>
<body>
` + nav + `
    <h1>Field Notes</h1>
    <h1>Latest posts</h1>
</body>
</html>`},
			2: {HTML: cleanPage("/blog", "Field Notes from the Pulse Outfitters Trail", cleanDesc, `
    <h1>Field Notes</h1>
    <h2>Latest posts</h2>`)},
		},
	}
}

// ===== CONTACT PAGE =====
func getContactPage() PageDefinition {
	return PageDefinition{
		Path:        "/contact",
		Description: "Contact page without lang or viewport",
		Versions: map[int]PageVersion{
			1: {HTML: `<!DOCTYPE html>
<html>
<head>
    <title>Contact the Pulse Outfitters Support Team</title>
    <meta name="description" content="Write to us.">
    <link rel="canonical" href="/contact">
    <link href="https://fonts.googleapis.com/css2?family=Inter" rel="stylesheet">
</head>
<body>
` + nav + `
    <h1>Contact</h1>
    <p>support@pulse.example</p>
</body>
</html>`},
			2: {HTML: cleanPage("/contact", "Contact the Pulse Outfitters Support Team", cleanDesc, `
    <h1>Contact</h1>
    <p>support@pulse.example</p>`)},
		},
	}
}
