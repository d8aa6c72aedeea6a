package ingest

import (
	"strconv"
	"strings"

	"github.com/SashaDiz/autoved-sub000/internal/telegram"
)

const linkBase = "https://t.me/"

// DeepLink builds a t.me link back to the source post. Public chats use their handle;
// private supergroups and channels (ids starting with -100) use the /c/ form. It returns ""
// when no link can be formed.
func DeepLink(msg telegram.Message) string {
	if msg.Chat == nil || msg.MessageID <= 0 {
		return ""
	}
	id := strconv.FormatInt(msg.MessageID, 10)
	if handle := strings.TrimPrefix(msg.Chat.Username, "@"); handle != "" {
		return linkBase + handle + "/" + id
	}
	chat := strconv.FormatInt(msg.Chat.ID, 10)
	if internal, ok := strings.CutPrefix(chat, "-100"); ok && internal != "" {
		return linkBase + "c/" + internal + "/" + id
	}
	return ""
}
