package domain

type (
	ChannelId   = string
	UserId      = string
	DisplayName = string
	MsgText     = string
)

// Channel identifies the destination of a composed message. Private channels
// get their own namespace in object storage paths.
type Channel struct {
	Id      ChannelId
	Private bool
}

// User is the author identity stamped onto every outgoing record.
type User struct {
	Id        UserId `json:"id"`
	Name      string `json:"name"`
	AvatarRef string `json:"avatar"`
}
