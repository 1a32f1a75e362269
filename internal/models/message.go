package models

import "strings"

// AnonymousAuthor is used when a record carries no author name
const AnonymousAuthor = "anonymous"

// Message is a message-board entry as exposed to the UI and persisted by the
// local fallback document.
type Message struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
	IsPublic  bool   `json:"isPublic"`
}

// Record is the payload serialized into a remote comment body
type Record struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Content  string `json:"content"`
	IsPublic bool   `json:"isPublic"`
}

// Record returns the serializable part of the message
func (m Message) Record() Record {
	return Record{
		Name:     m.Name,
		Email:    m.Email,
		Content:  m.Content,
		IsPublic: m.IsPublic,
	}
}

// SubmitRequest is the body accepted by the submission route. The
// author_name / author_email / is_public spellings used by serialized comment
// bodies are accepted as aliases.
type SubmitRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Content  string `json:"content"`
	IsPublic *bool  `json:"isPublic,omitempty"`

	AuthorName  *string `json:"author_name,omitempty"`
	AuthorEmail *string `json:"author_email,omitempty"`
	PublicFlag  *bool   `json:"is_public,omitempty"`
}

// Field is a submitted value together with the key the client sent it under
type Field struct {
	Key   string
	Value string
}

// NameField returns the author name, preferring "name" when it is set
func (r SubmitRequest) NameField() Field {
	return pickField("name", r.Name, "author_name", r.AuthorName)
}

// EmailField returns the author email, preferring "email" when it is set
func (r SubmitRequest) EmailField() Field {
	return pickField("email", r.Email, "author_email", r.AuthorEmail)
}

// Visibility returns the requested public flag, or nil when none was sent
func (r SubmitRequest) Visibility() *bool {
	if r.IsPublic != nil {
		return r.IsPublic
	}
	return r.PublicFlag
}

func pickField(key, value, aliasKey string, alias *string) Field {
	if strings.TrimSpace(value) == "" && alias != nil {
		return Field{Key: aliasKey, Value: *alias}
	}
	return Field{Key: key, Value: value}
}

// AdminListing is the admin view of every stored message
type AdminListing struct {
	Messages     []Message
	PublicCount  int
	PrivateCount int
}
