package domain

type (
	RoomID   string
	RoomType string
)

const (
	// RoomTypeUser is a private channel with one canonical member,
	// used for direct server-to-client pushes.
	RoomTypeUser RoomType = "user"
	// RoomTypeFriends carries a user's location broadcasts to their
	// subscribed friends.
	RoomTypeFriends RoomType = "friends"
	// RoomTypeGroup is a social group's shared channel.
	RoomTypeGroup RoomType = "group"
	// RoomTypeVoice is an active call for one group.
	RoomTypeVoice RoomType = "voice"
)

// GroupOfVoiceRoom recovers the group a voice room belongs to.
func GroupOfVoiceRoom(id RoomID) (GroupID, bool) {
	const prefix = "voice_"
	s := string(id)
	if len(s) <= len(prefix) || s[:len(prefix)] != prefix {
		return "", false
	}
	return GroupID(s[len(prefix):]), true
}

func UserRoom(uid UserID) RoomID    { return RoomID("user_" + uid) }
func FriendsRoom(uid UserID) RoomID { return RoomID("friends_of_" + uid) }
func GroupRoom(gid GroupID) RoomID  { return RoomID("group_" + gid) }
func VoiceRoom(gid GroupID) RoomID  { return RoomID("voice_" + gid) }
