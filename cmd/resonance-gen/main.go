// Command resonance-gen generates Go constants for the prompt ids in a
// catalog, so call sites survive a rename with a compile error instead of
// an empty render:
//
//	resonance-gen -pkg prompts -out prompts_gen.go catalog.yaml
//
// Catalogs are parsed and merged exactly as the SDK does it, so the
// generated names match what a client would serve.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dave/jennifer/jen"

	resonance "github.com/resonancehq/resonance-go"
	"github.com/resonancehq/resonance-go/filesource"
)

func main() {
	pkg := flag.String("pkg", "prompts", "package name of the generated file")
	out := flag.String("out", "", "output path (default stdout)")
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: resonance-gen [-pkg name] [-out file] catalog.yaml...")
		os.Exit(2)
	}

	prompts, err := load(flag.Args())
	if err != nil {
		fatal(err)
	}

	f := generate(*pkg, prompts)
	if *out == "" {
		if err := f.Render(os.Stdout); err != nil {
			fatal(err)
		}
		return
	}
	if err := f.Save(*out); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "resonance-gen:", err)
	os.Exit(1)
}

// load runs the catalog files through the SDK's own source and decodes the
// snapshot it emits.
func load(paths []string) ([]resonance.Prompt, error) {
	src, err := filesource.New(paths)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	ev := <-src.Events()
	var payload resonance.SyncPayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		return nil, err
	}
	return payload.Prompts, nil
}

func generate(pkg string, prompts []resonance.Prompt) *jen.File {
	// Duplicate ids across files collapse to the last record, the same
	// way the client's mirror resolves them.
	byID := make(map[string]resonance.Prompt, len(prompts))
	for _, p := range prompts {
		byID[p.ID] = p
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by resonance-gen. DO NOT EDIT.")

	used := make(map[string]bool, len(ids))
	f.Const().DefsFunc(func(g *jen.Group) {
		for _, id := range ids {
			p := byID[id]
			g.Commentf("%s v%d (agent %q)", p.Name, p.Version, p.AgentID)
			g.Id(ident(id, used)).Op("=").Lit(id)
		}
	})
	return f
}

// ident derives an exported Go identifier from a prompt id. Runs of
// non-alphanumerics start a new camel hump, a leading digit gets a "Prompt"
// prefix, and names already claimed get a numeric suffix so every constant
// survives.
func ident(id string, used map[string]bool) string {
	var b strings.Builder
	up := true
	for _, r := range id {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			up = true
			continue
		}
		if up {
			r = unicode.ToUpper(r)
			up = false
		}
		b.WriteRune(r)
	}

	name := b.String()
	first, _ := utf8.DecodeRuneInString(name)
	if name == "" || unicode.IsDigit(first) {
		name = "Prompt" + name
	}

	// Suffixed names are claimed as well, so ids that sanitize to the same
	// base can never emit the same constant twice.
	base := name
	for n := 2; used[name]; n++ {
		name = fmt.Sprintf("%s%d", base, n)
	}
	used[name] = true
	return name
}
