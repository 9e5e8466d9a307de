package domain

import "errors"

var (
	// ErrIdentityMissing open conversation without both participant ids
	ErrIdentityMissing = errors.New("identity missing")
	// ErrStoreUnavailable message store query/insert/update failed
	ErrStoreUnavailable = errors.New("message store unavailable")
	// ErrUploadFailed image upload failed, the send is aborted
	ErrUploadFailed = errors.New("image upload failed")
	// ErrSessionClosed send on a conversation that is not open
	ErrSessionClosed = errors.New("conversation not open")
	// ErrNoCorrespondent admin send without a selected correspondent
	ErrNoCorrespondent = errors.New("no correspondent selected")
)
