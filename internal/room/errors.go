package room

import "errors"

var (
	// ErrFetchFailed marks a failed TTL or message list retrieval. Recovered locally.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrSendFailed marks a rejected or undelivered message. The draft is kept.
	ErrSendFailed = errors.New("send failed")
	// ErrDestroyFailed marks a rejected destroy request. The room stays active.
	ErrDestroyFailed = errors.New("destroy failed")
	// ErrEmptyMessage is returned for blank text before any network call.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrStaleEvent marks a trigger that arrived after the room ended.
	ErrStaleEvent = errors.New("stale event ignored")
	// ErrRoomGone is returned by actions attempted after the room ended.
	ErrRoomGone = errors.New("room is gone")
	// ErrRoomNotFound is returned by the server for rooms that no longer exist.
	ErrRoomNotFound = errors.New("room not found")
)
