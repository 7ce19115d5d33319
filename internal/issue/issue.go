// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/plugload/plugload/pkg/loader"
	"github.com/plugload/plugload/pkg/manifest"
	"github.com/plugload/plugload/pkg/pluginname"
	"github.com/plugload/plugload/pkg/pluginns"
)

const (
	ManifestNotFoundId Id = iota + 1
	ManifestParseErrorId
	ModuleNotFoundId
	ScriptFailedId
	PathConflictId
	InvalidPatternId
	PropertyNotFoundId
	ConfigLoadFailedId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id          // ID used to lookup the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink
		extLinks []HttpLink // external links that might be useful for the user
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Markdown returns the message followed by a "See also" section when the
// issue has links.
func (i *Issue) Markdown() string {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	links := append(i.DocLinks(), i.extLinks...)
	if len(links) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range links {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return md.String()
}

// Render renders the issue with the glamour style at stylePath ("dark",
// "light", "notty", ...).
func (i *Issue) Render(stylePath string) (string, error) {
	return render(i.Markdown(), stylePath)
}

var (
	render = glamour.Render

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# No dependency manifest found!

plugload looked for a manifest in the project directory and every parent
directory, and found none that declares dependencies.

## Files searched, in order:
1. package.json
2. package.yaml / package.yml
3. package.toml
4. package.cue

## Things you can try:
- Run plugload from your project directory, or pass it:
~~~
$ plugload list ./path/to/project
~~~

- Make sure the manifest has a dependencies section:
~~~json
{
  "dependencies": {
    "foo-plugin": "^1.0.0"
  }
}
~~~

- Check which categories are read with ` + "`--scope`" + `.`,
		docLinks: []HttpLink{"https://docs.npmjs.com/cli/configuring-npm/package-json#dependencies"},
	}

	manifestParseErrorIssue = &Issue{
		id: ManifestParseErrorId,
		mdMsg: `
# Failed to parse the dependency manifest!

The manifest could not be decoded, or a field does not have the expected type.

## Common causes:
- Syntax error (missing comma, unclosed brace)
- A version written as a number instead of a string
- A dependency category that is a list instead of a mapping

## Things you can try:
- Check the field path shown in the error above
- Quote every version:
~~~json
"dependencies": { "foo-plugin": "1.0.0" }
~~~`,
	}

	moduleNotFoundIssue = &Issue{
		id: ModuleNotFoundId,
		mdMsg: `
# Module not found!

A plugin is declared in the manifest but its module could not be loaded.

## Things you can try:
- Install your dependencies so that node_modules is populated
- Check that the module directory has an index.js or a package.json "main"
- Check ` + "`modules_dir`" + ` in your plugload configuration
- Rename or remove the dependency if it is no longer used`,
	}

	scriptFailedIssue = &Issue{
		id: ScriptFailedId,
		mdMsg: `
# Plugin script failed!

The plugin module was found but threw an error while loading or running.

## Things you can try:
- Read the script error and file shown above
- Run with ` + "`--verbose`" + ` to see the full error chain
- Check that the module only requires modules plugload can load`,
	}

	pathConflictIssue = &Issue{
		id: PathConflictId,
		mdMsg: `
# Plugin property paths conflict!

Two dependencies map to property paths that cannot coexist, for example
` + "`@foo/bar-plugin`" + ` (foo.bar) and ` + "`foo-plugin`" + ` (foo).

## Things you can try:
- Give one of them a different name:
~~~
$ plugload list --rename foo-plugin=fooPlugin
~~~

- Exclude one with a negated pattern:
~~~
$ plugload list --pattern '*-plugin' --pattern '!foo-plugin'
~~~`,
	}

	invalidPatternIssue = &Issue{
		id: InvalidPatternId,
		mdMsg: `
# Invalid pattern!

A ` + "`--pattern`" + ` value or a ` + "`patterns`" + ` entry in the configuration is not a valid glob.

## Syntax:
- ` + "`*`" + ` matches any run of characters
- ` + "`?`" + ` matches one character
- ` + "`[abc]`" + ` matches a character class
- ` + "`{a,b}`" + ` matches alternatives
- a leading ` + "`!`" + ` excludes matches`,
	}

	propertyNotFoundIssue = &Issue{
		id: PropertyNotFoundId,
		mdMsg: `
# Property not found!

The property path does not exist in the plugin namespace.

## Things you can try:
- List the available properties:
~~~
$ plugload list
~~~

- See how an identifier is named:
~~~
$ plugload explain @scope/name-plugin
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The plugload configuration file could not be read or is invalid.

## Things you can try:
- Show where the configuration is read from:
~~~
$ plugload config path
~~~

- Write a fresh default configuration:
~~~
$ plugload config init
~~~

- Check the CUE syntax, for example:
~~~cue
patterns: ["*-plugin", "@*/*-plugin"]
camelize: true
~~~`,
	}

	issues = map[Id]*Issue{
		manifestNotFoundIssue.Id():   manifestNotFoundIssue,
		manifestParseErrorIssue.Id(): manifestParseErrorIssue,
		moduleNotFoundIssue.Id():     moduleNotFoundIssue,
		scriptFailedIssue.Id():       scriptFailedIssue,
		pathConflictIssue.Id():       pathConflictIssue,
		invalidPatternIssue.Id():     invalidPatternIssue,
		propertyNotFoundIssue.Id():   propertyNotFoundIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}

// ErrConfigLoad marks configuration failures so ForError can find them.
var ErrConfigLoad = errors.New("configuration load failed")

// ForError returns the catalogue entry for the first known failure in err's
// chain, or nil.
func ForError(err error) *Issue {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, manifest.ErrNotFound):
		return Get(ManifestNotFoundId)
	case errors.Is(err, manifest.ErrParse):
		return Get(ManifestParseErrorId)
	case errors.Is(err, loader.ErrScriptFailed):
		return Get(ScriptFailedId)
	case errors.Is(err, loader.ErrModuleNotFound):
		return Get(ModuleNotFoundId)
	case errors.Is(err, pluginns.ErrPathConflict):
		return Get(PathConflictId)
	case errors.Is(err, pluginname.ErrInvalidPattern):
		return Get(InvalidPatternId)
	case errors.Is(err, pluginns.ErrNoSuchProperty):
		return Get(PropertyNotFoundId)
	case errors.Is(err, ErrConfigLoad):
		return Get(ConfigLoadFailedId)
	default:
		return nil
	}
}
