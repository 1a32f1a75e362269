package github

// RawRecord is an unprocessed comment as returned by the remote thread
type RawRecord struct {
	ID        string
	Body      string
	CreatedAt string
	Author    string
}

type apiUser struct {
	Login string `json:"login"`
}

type apiComment struct {
	ID        int64    `json:"id"`
	Body      string   `json:"body"`
	CreatedAt string   `json:"created_at"`
	User      *apiUser `json:"user"`
}

func (c apiComment) raw() RawRecord {
	r := RawRecord{
		ID:        formatID(c.ID),
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
	}
	if c.User != nil {
		r.Author = c.User.Login
	}
	return r
}

type createRequest struct {
	Body string `json:"body"`
}
