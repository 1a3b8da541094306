// Command brushls lists the brush variants registered in the process-wide
// factory (§4.2) and, given a URI, constructs one and prints its schema
// requirements.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/hobu/plasio-go/internal/brush"
)

func main() {
	var uri string
	flag.StringVar(&uri, "uri", "", "brush URI to construct and inspect, e.g. local://ramp?field=z")
	flag.Parse()

	if uri == "" {
		available := brush.Default().Available()
		sort.Strings(available)
		for _, name := range available {
			fmt.Println(name)
		}
		return
	}

	b, err := brush.Default().Create(uri)
	if err != nil {
		fmt.Fprintf(os.Stderr, "brushls: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("uri: %s\n", b.URI())
	fields := b.RequiredSchemaFields()
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)
	fmt.Printf("required schema fields: %v\n", names)

	payload, err := b.Serialize()
	if err != nil {
		fmt.Fprintf(os.Stderr, "brushls: serialize: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("serialized: %+v\n", payload)
}
