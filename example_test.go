package resonance_test

import (
	"context"
	"fmt"
	"strings"
	"testing/fstest"

	resonance "github.com/resonancehq/resonance-go"
	"github.com/resonancehq/resonance-go/filesource"
)

// ExampleNew shows the production setup. It is not executed: it would dial
// the live endpoint.
func ExampleNew() {
	client, err := resonance.New("rsn_your_api_key")
	if err != nil {
		panic(err)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.WaitUntilReady(ctx); err != nil {
		panic(err)
	}
	text, err := client.Render(ctx, "welcome-v2", map[string]any{"name": "Ada"})
	if err != nil {
		panic(err)
	}
	fmt.Println(text)
}

func Example() {
	catalog := fstest.MapFS{
		"prompts/support.yaml": &fstest.MapFile{Data: []byte(`
prompts:
  - id: welcome-v2
    name: welcome
    agentId: support
    version: 2
    content: "Hello, {{ .name }}! How can we help?"
`)},
	}
	src, err := filesource.NewFS(catalog, "prompts")
	if err != nil {
		panic(err)
	}

	client, err := resonance.New("rsn_demo", resonance.WithSource(src))
	if err != nil {
		panic(err)
	}
	defer client.Close()

	ctx := context.Background()
	text, err := client.Render(ctx, "welcome-v2", map[string]any{"name": "Ada"})
	if err != nil {
		panic(err)
	}
	fmt.Println(text)
	// Output: Hello, Ada! How can we help?
}

func ExampleClient_Find() {
	catalog := fstest.MapFS{
		"prompts/catalog.yaml": &fstest.MapFile{Data: []byte(`
prompts:
  - id: farewell-1
    name: farewell
    agentId: support
    version: 1
    content: "Bye!"
  - id: welcome-1
    name: welcome
    agentId: support
    version: 1
    content: "Hi!"
  - id: welcome-2
    name: welcome
    agentId: sales
    version: 2
    content: "Hi there!"
`)},
	}
	src, err := filesource.NewFS(catalog, "prompts")
	if err != nil {
		panic(err)
	}

	client, err := resonance.New("rsn_demo", resonance.WithSource(src))
	if err != nil {
		panic(err)
	}
	defer client.Close()

	prompts, err := client.Find(context.Background(), resonance.Filter{
		Name: resonance.Ptr("welcome"),
	})
	if err != nil {
		panic(err)
	}
	for _, p := range prompts {
		fmt.Println(p.ID, p.AgentID)
	}
	// Output:
	// welcome-1 support
	// welcome-2 sales
}

func ExampleRegisterHelper() {
	if err := resonance.RegisterHelper("shout", strings.ToUpper); err != nil {
		panic(err)
	}

	catalog := fstest.MapFS{
		"prompts/loud.yaml": &fstest.MapFile{Data: []byte(`
prompts:
  - id: loud-1
    name: loud
    version: 1
    content: "{{ shout .word }}"
`)},
	}
	src, err := filesource.NewFS(catalog, "prompts")
	if err != nil {
		panic(err)
	}

	client, err := resonance.New("rsn_demo", resonance.WithSource(src))
	if err != nil {
		panic(err)
	}
	defer client.Close()

	text, err := client.Render(context.Background(), "loud-1", map[string]any{"word": "hello"})
	if err != nil {
		panic(err)
	}
	fmt.Println(text)
	// Output: HELLO
}
