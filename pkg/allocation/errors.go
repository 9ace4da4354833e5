package allocation

import "fmt"

// UnknownNodeError is returned for a node id that the model never handed out.
type UnknownNodeError struct {
	ID int
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node id %d", e.ID)
}
