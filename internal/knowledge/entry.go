package knowledge

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind tells how an entry is laid out in the fact file.
type Kind int

const (
	// KindFact is a taught value stored as a bare JSON string.
	KindFact Kind = iota
	// KindAnswer is a remembered answer stored as {"answer", "context"}.
	KindAnswer
)

// SearchedOnline is the context recorded for answers that came from a web search.
const SearchedOnline = "Searched online"

type Entry struct {
	Kind    Kind
	Value   string
	Context string
}

// Text is what gets shown to the user for this entry.
func (e Entry) Text() string { return e.Value }

type answerObject struct {
	Answer  string `json:"answer"`
	Context string `json:"context"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Kind == KindAnswer {
		return marshalRaw(answerObject{Answer: e.Value, Context: e.Context})
	}
	return marshalRaw(e.Value)
}

// marshalRaw is json.Marshal without HTML escaping, so facts such as
// "a < b" stay readable in the file.
func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = Entry{Kind: KindFact, Value: s}
		return nil
	}
	var obj answerObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("entry is neither a string nor an answer object: %w", err)
	}
	*e = Entry{Kind: KindAnswer, Value: obj.Answer, Context: obj.Context}
	return nil
}

// Fact is a key with its entry, used for listings.
type Fact struct {
	Key   string
	Entry Entry
}
