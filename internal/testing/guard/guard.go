// Package guard forces test mode on for packages that import it, so no test
// accidentally starts runtime side effects.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("CLINICORE_TEST_MODE") == "" {
			_ = os.Setenv("CLINICORE_TEST_MODE", "1")
		}
	})
}
