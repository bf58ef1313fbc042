// Package pdfqa embeds the pdfqa question-answering pipeline in a Go program.
//
// The caller supplies the embedding and generation providers; pdfqa loads a
// folder of PDF and text files, splits them into overlapping chunks, indexes
// the chunk embeddings and answers questions from the closest passages.
//
//	client, err := pdfqa.New(ctx,
//	    pdfqa.WithFileIndex("chroma_db"),
//	    pdfqa.WithEmbedder(myEmbedder, "text-embedding-3-small", 1536),
//	    pdfqa.WithGenerator(myGenerator),
//	)
//	defer client.Close()
//
//	report, _ := client.Ingest(ctx, "data")
//	ans, _ := client.Ask(ctx, "What is the delivery deadline?")
//	for _, s := range ans.Sources {
//	    fmt.Println(s.Source, s.Page, s.Excerpt)
//	}
//
// Redis 8+ or Valkey with the search module can replace the local file index
// through WithRedis or WithValkey.
package pdfqa
