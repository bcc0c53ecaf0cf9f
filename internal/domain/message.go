package domain

// Message is the immutable record handed to the storage collaborator.
// Exactly one of Content or ImageRef is set. The creation timestamp is
// assigned by the storage side, never by the client.
type Message struct {
	Author   User    `json:"user"`
	Content  MsgText `json:"content,omitempty"`
	ImageRef string  `json:"image,omitempty"`
}

func NewTextMessage(author User, content MsgText) Message {
	return Message{Author: author, Content: content}
}

func NewImageMessage(author User, imageRef string) Message {
	return Message{Author: author, ImageRef: imageRef}
}

// IsImage reports which of the two mutually exclusive payloads the record carries.
func (m Message) IsImage() bool {
	return m.ImageRef != ""
}
