package fsbackend

import (
	"os"

	"golang.org/x/xerrors"
	"gopkg.in/ini.v1"

	"github.com/vcsforge/govcs/internal/gitpath"
)

// .git/config keys we set on init
const (
	cfgCore                  = "core"
	cfgCoreFormatVersion     = "repositoryformatversion"
	cfgCoreFileMode          = "filemode"
	cfgCoreBare              = "bare"
	cfgCoreLogAllRefUpdate   = "logallrefupdates"
	cfgCoreIgnoreCase        = "ignorecase"
	cfgCorePrecomposeUnicode = "precomposeunicode"
)

// setDefaultCfg sets and persists the default git configuration for
// the repository
func (b *Backend) setDefaultCfg() error {
	cfg := ini.Empty()

	core, err := cfg.NewSection(cfgCore)
	if err != nil {
		return xerrors.Errorf("could not create core section: %w", err)
	}
	coreCfg := map[string]string{
		cfgCoreFormatVersion:     "0",
		cfgCoreFileMode:          "true",
		cfgCoreBare:              boolStr(b.cfg.IsBare),
		cfgCoreLogAllRefUpdate:   "true",
		cfgCoreIgnoreCase:        "true",
		cfgCorePrecomposeUnicode: "true",
	}
	for k, v := range coreCfg {
		if _, err := core.NewKey(k, v); err != nil {
			return xerrors.Errorf("could not set %s: %w", k, err)
		}
	}

	out, err := b.fs.OpenFile(b.join(gitpath.ConfigPath), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return xerrors.Errorf("could not open config file: %w", err)
	}
	defer out.Close() //nolint:errcheck // write error takes precedence

	if _, err := cfg.WriteTo(out); err != nil {
		return xerrors.Errorf("could not write config file: %w", err)
	}
	return nil
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
