package channel

// ChannelCapabilities advertises which message features a platform supports.
type ChannelCapabilities struct {
	Text        bool `json:"text"`
	Markdown    bool `json:"markdown"`
	Reply       bool `json:"reply"`
	Attachments bool `json:"attachments"`
	Media       bool `json:"media"`
	Threads     bool `json:"threads"`
}
