package integrations_test

import (
	"fmt"

	"github.com/matzehuels/gradlab/pkg/integrations"
)

func ExampleResolveURL() {
	base := "http://localhost:8000"
	fmt.Println(integrations.ResolveURL(base, "/static/img-1/dx.png"))
	fmt.Println(integrations.ResolveURL(base, "static/img-1/dy.png"))
	fmt.Println(integrations.ResolveURL(base, "https://cdn.example.com/mag.png"))
	// Output:
	// http://localhost:8000/static/img-1/dx.png
	// http://localhost:8000/static/img-1/dy.png
	// https://cdn.example.com/mag.png
}

func ExampleURLEncode() {
	fmt.Println(integrations.URLEncode("img 1/a"))
	// Output:
	// img+1%2Fa
}
