// Package telegram holds Bot API wire types and a minimal HTTP client for the calls the
// service makes: getFile, file download URLs and sendMessage.
package telegram

// Update is the envelope Telegram posts to the webhook.
type Update struct {
	UpdateID    int64    `json:"update_id"`
	Message     *Message `json:"message,omitempty"`
	ChannelPost *Message `json:"channel_post,omitempty"`
}

// Message is the subset of a Telegram message the pipeline consumes.
type Message struct {
	MessageID int64       `json:"message_id"`
	Date      int64       `json:"date"`
	Text      string      `json:"text,omitempty"`
	Caption   string      `json:"caption,omitempty"`
	Photo     []PhotoSize `json:"photo,omitempty"`
	Chat      *Chat       `json:"chat,omitempty"`
}

// PhotoSize describes one resolution of an attached photo.
type PhotoSize struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id,omitempty"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FileSize     int64  `json:"file_size,omitempty"`
}

// Chat identifies where a message was posted.
type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
}

// File is the result of getFile.
type File struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size,omitempty"`
	FilePath string `json:"file_path,omitempty"`
}

// Body returns text and caption joined by a newline, skipping empty parts.
func (m Message) Body() string {
	switch {
	case m.Text != "" && m.Caption != "":
		return m.Text + "\n" + m.Caption
	case m.Text != "":
		return m.Text
	default:
		return m.Caption
	}
}

// HasPhoto reports whether the message carries at least one photo size.
func (m Message) HasPhoto() bool {
	return len(m.Photo) > 0
}

// LargestPhoto returns the last photo size; Telegram orders sizes ascending.
func (m Message) LargestPhoto() (PhotoSize, bool) {
	if len(m.Photo) == 0 {
		return PhotoSize{}, false
	}
	return m.Photo[len(m.Photo)-1], true
}
