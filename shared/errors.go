package shared

import "fmt"

// ConfigMismatchError reports a config param that disagrees with the state
// already persisted in a datadir.
type ConfigMismatchError struct {
	Param    string
	Expected string
	Found    string
	DataDir  string
}

func (err ConfigMismatchError) Error() string {
	return fmt.Sprintf("`%v` config mismatch; expected: %v, found: %v, datadir: %v",
		err.Param, err.Expected, err.Found, err.DataDir)
}
