package enroll

import "strconv"

// Key layout:
//
//	tpl:{user}                → msgpack-encoded TemplateRecord
//	att:{user}:{ts_ns}:{id}   → msgpack-encoded AttemptRecord
//
// Nanosecond Unix timestamps are 19 digits for any date this system will
// see, so plain decimal keys sort lexicographically in chronological
// order. The attempt ID suffix keeps concurrent attempts in the same
// nanosecond from colliding.

const (
	templatePrefix = "tpl:"
	attemptPrefix  = "att:"
)

func templateKey(userID string) []byte {
	return []byte(templatePrefix + userID)
}

func attemptKey(rec AttemptRecord) []byte {
	ts := strconv.FormatInt(rec.At.UnixNano(), 10)
	return []byte(attemptPrefix + rec.UserID + ":" + ts + ":" + rec.ID)
}

// userAttemptPrefix scopes a scan to one user's attempts. The trailing
// separator keeps user "al" from matching user "alice".
func userAttemptPrefix(userID string) []byte {
	return []byte(attemptPrefix + userID + ":")
}
