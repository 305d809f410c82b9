package domain

import "strings"

// chatKeySeparator joins the two participant IDs of a direct thread. It must
// stay stable; the key addresses existing message data.
const chatKeySeparator = "_"

// DirectChatKey returns the canonical key for the direct conversation between
// two users. The key is order-independent: the pair is sorted
// lexicographically before joining, so (a, b) and (b, a) always resolve to the
// same thread.
//
// Groups need no resolution step; the group ID itself is the key.
func DirectChatKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return userA + chatKeySeparator + userB
}

// ChatKeyParticipants splits a direct chat key back into its two participant
// IDs. The second return is false if the key is not a direct chat key.
func ChatKeyParticipants(chatID string) ([]string, bool) {
	parts := strings.SplitN(chatID, chatKeySeparator, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, false
	}
	return parts, true
}
