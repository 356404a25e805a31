package bcycle

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Mount registers every route of sub under prefix. Routes keep their cycle and settings, only
// the path is prefixed. Route names are carried over when sub reverses with another reverser.
func (m *Mux) Mount(prefix string, sub *Mux) error {
	prefix = strings.TrimSuffix(prefix, "/")
	if !strings.HasPrefix(prefix, "/") {
		return errors.Newf("mount prefix %q must start with a slash", prefix)
	}

	for _, rt := range sub.routes {
		mounted := *rt
		mounted.Settings.Path = prefix + rt.Settings.Path
		if m.reverser == sub.reverser {
			mounted.Settings.Name = ""
		}

		if err := m.HandleRoute(&mounted); err != nil {
			return errors.Wrapf(err, "failed to mount %q", rt.Settings.Path)
		}
	}

	return nil
}
