// Package autotrans provides an automatic page translation pipeline.
//
// Autotrans scans a document for translatable text, translates it in
// batches through a translation backend, patches the translations back into
// the document while remembering the originals, and restores the originals
// when the reader switches back to the source language.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/autotrans"
//	    "github.com/ZaguanLabs/autotrans/cache"
//	    "github.com/ZaguanLabs/autotrans/dom"
//	    "github.com/ZaguanLabs/autotrans/pipeline"
//	    "github.com/ZaguanLabs/autotrans/scanner"
//	    "github.com/ZaguanLabs/autotrans/transport"
//	)
//
//	func main() {
//	    // Client for the translation backend
//	    client := autotrans.NewClient(
//	        transport.NewHTTPBackend("http://localhost:8000"),
//	        autotrans.WithClientCache(cache.NewInMemoryCache()),
//	    )
//
//	    doc, _ := dom.ParseHTML(strings.NewReader("<p>Hello World</p>"))
//
//	    p := pipeline.New(client, scanner.New())
//	    result, err := p.Translate(context.Background(), doc, "hi")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(result.Translated, doc.String())
//	}
package autotrans
