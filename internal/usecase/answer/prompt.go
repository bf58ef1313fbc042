package answer

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/pdfqa/internal/domain/passage"
)

const stuffTemplate = `Use the following pieces of context to answer the question at the end.
If the context does not contain the answer, say that you don't know. Do not make up an answer.

%s

Question: %s
Helpful Answer:`

const refineInitialTemplate = `Context information is below.
---------------------
%s
---------------------
Given the context information and no prior knowledge, answer the question: %s
`

const refineTemplate = `The original question is: %s
We have provided an existing answer: %s
We have the opportunity to refine the existing answer (only if needed) with some more context below.
------------
%s
------------
Given the new context, refine the original answer to better answer the question.
If the context isn't useful, return the original answer.`

const mapTemplate = `Use the following portion of a document to see if any of the text is relevant to answer the question.
Return any relevant text verbatim. If nothing is relevant, return an empty answer.
%s
Question: %s
Relevant text, if any:`

const reduceTemplate = `Given the following extracted parts of some documents and a question, create a final answer.
If you don't know the answer, just say that you don't know. Don't try to make up an answer.

QUESTION: %s
=========
%s
=========
FINAL ANSWER:`

func stuffPrompt(question string, passages []passage.Passage) string {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Chunk().Text()
	}
	return fmt.Sprintf(stuffTemplate, strings.Join(texts, "\n\n"), question)
}

func refineInitialPrompt(question string, p passage.Passage) string {
	return fmt.Sprintf(refineInitialTemplate, p.Chunk().Text(), question)
}

func refinePrompt(question, existing string, p passage.Passage) string {
	return fmt.Sprintf(refineTemplate, question, existing, p.Chunk().Text())
}

func mapPrompt(question string, p passage.Passage) string {
	return fmt.Sprintf(mapTemplate, p.Chunk().Text(), question)
}

func reducePrompt(question string, extracts []string) string {
	return fmt.Sprintf(reduceTemplate, question, strings.Join(extracts, "\n\n"))
}
