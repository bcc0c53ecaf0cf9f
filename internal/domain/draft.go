package domain

// Draft is the in-progress, unsent message state. It is owned exclusively by
// the composer and reset after each successful send.
type Draft struct {
	Text              MsgText
	PendingAttachment *Attachment
	EmojiPickerOpen   bool
}

// Attachment is a user-selected binary file awaiting validation and upload.
// It is consumed (or discarded) by a single send attempt and never retained
// after resolution.
type Attachment struct {
	Data        []byte
	FileName    string
	MimeType    string
	ImageWidth  *int
	ImageHeight *int
}

// ValidationError is an ordered entry in the composer's error list,
// surfaced to the UI layer for display.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Detail
}
