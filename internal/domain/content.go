package domain

// MediaDescriptor describes an embeddable media attachment on an entry.
type MediaDescriptor struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// ArticleFields is the payload for creating a content-store title record.
type ArticleFields struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	AuthorID string `json:"authorId"`
}

// EntryFields is the payload for creating a content-store body entry.
type EntryFields struct {
	ArticleID string           `json:"articleId"`
	Body      string           `json:"body"`
	AuthorID  string           `json:"authorId"`
	Media     *MediaDescriptor `json:"media,omitempty"`
}

// Identity is the automated-content author the publisher acts under.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Token string `json:"token"`
}
