package mailbox

import (
	"fmt"

	"github.com/dmitrijs2005/melonmail/internal/client/models"
)

// FolderError scopes a failure to one folder.
type FolderError struct {
	Folder models.Folder
	Err    error
}

func (e *FolderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Folder, e.Err)
}

func (e *FolderError) Unwrap() error {
	return e.Err
}

// ThreadError scopes a failure to one thread.
type ThreadError struct {
	ThreadID string
	Err      error
}

func (e *ThreadError) Error() string {
	return fmt.Sprintf("thread %s: %v", e.ThreadID, e.Err)
}

func (e *ThreadError) Unwrap() error {
	return e.Err
}
