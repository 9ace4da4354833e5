package profile

import "github.com/rs/xid"

// TestID is a stable profile id for use in tests.
var TestID = func() ID {
	id, err := xid.FromString("9m4e2mr0ui3e8a215n4g")
	if err != nil {
		panic(err)
	}
	return id.Bytes()
}()
