package transport

import "golang.org/x/xerrors"

// Sideband channel tags used inside a fetch response's pkt-lines.
const (
	SidebandData     = 1
	SidebandProgress = 2
	SidebandError    = 3
)

// ErrSideband is returned when the remote sends an error on the
// error sideband channel, or a line carries an unknown channel tag.
var ErrSideband = xerrors.New("sideband error")

// DemuxPack concatenates the sideband-1 (pack data) bytes out of the
// pkt-lines of a fetch response's packfile section, in order. The first
// line of that section is the informational "packfile" marker and is
// not itself sideband-tagged, so callers pass only the lines that
// follow it. Progress lines are dropped; an error line aborts with its
// message.
func DemuxPack(lines [][]byte) ([]byte, error) {
	var pack []byte
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		channel, payload := line[0], line[1:]
		switch channel {
		case SidebandData:
			pack = append(pack, payload...)
		case SidebandProgress:
			// discarded: not needed to materialize the result
		case SidebandError:
			return nil, xerrors.Errorf("%s: %w", string(payload), ErrSideband)
		default:
			return nil, xerrors.Errorf("channel %d: %w", channel, ErrSideband)
		}
	}
	return pack, nil
}
