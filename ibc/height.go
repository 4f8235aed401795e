package ibc

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Height is a monotonically increasing data type that can be compared
// against another Height for the purposes of updating and freezing clients.
// Heights are ordered by revision first, then by height within the revision.
type Height struct {
	RevisionNumber uint64 `json:"revision_number"`
	RevisionHeight uint64 `json:"revision_height"`
}

// ZeroHeight is a helper function which returns an uninitialized height.
func ZeroHeight() Height {
	return Height{}
}

// NewHeight is a constructor for the Height type.
func NewHeight(revisionNumber, revisionHeight uint64) Height {
	return Height{
		RevisionNumber: revisionNumber,
		RevisionHeight: revisionHeight,
	}
}

// Compare implements a method to compare two heights. When comparing two
// heights a, b we can call a.Compare(b) which will return
// -1 if a < b
// 0  if a = b
// 1  if a > b
func (h Height) Compare(other Height) int {
	switch {
	case h.RevisionNumber < other.RevisionNumber:
		return -1
	case h.RevisionNumber > other.RevisionNumber:
		return 1
	case h.RevisionHeight < other.RevisionHeight:
		return -1
	case h.RevisionHeight > other.RevisionHeight:
		return 1
	default:
		return 0
	}
}

func (h Height) LT(other Height) bool  { return h.Compare(other) == -1 }
func (h Height) LTE(other Height) bool { return h.Compare(other) != 1 }
func (h Height) GT(other Height) bool  { return h.Compare(other) == 1 }
func (h Height) GTE(other Height) bool { return h.Compare(other) != -1 }
func (h Height) EQ(other Height) bool  { return h.Compare(other) == 0 }

// IsZero returns true if both the revision number and height are 0.
func (h Height) IsZero() bool {
	return h.RevisionNumber == 0 && h.RevisionHeight == 0
}

// Increment returns the next height within the same revision. It returns
// false on overflow.
func (h Height) Increment() (Height, bool) {
	if h.RevisionHeight == math.MaxUint64 {
		return h, false
	}
	return NewHeight(h.RevisionNumber, h.RevisionHeight+1), true
}

// String returns a string representation of Height, "{revision}-{height}".
func (h Height) String() string {
	return fmt.Sprintf("%d-%d", h.RevisionNumber, h.RevisionHeight)
}

// ParseHeight is a utility function that takes a string representation of
// the height and returns a Height struct.
func ParseHeight(heightStr string) (Height, error) {
	splitStr := strings.Split(heightStr, "-")
	if len(splitStr) != 2 {
		return Height{}, fmt.Errorf("%w: expected height string format: {revision}-{height}, got: %s",
			ErrMalformedInput, heightStr)
	}
	revisionNumber, err := strconv.ParseUint(splitStr[0], 10, 64)
	if err != nil {
		return Height{}, fmt.Errorf("%w: invalid revision number %q: %v", ErrMalformedInput, splitStr[0], err)
	}
	revisionHeight, err := strconv.ParseUint(splitStr[1], 10, 64)
	if err != nil {
		return Height{}, fmt.Errorf("%w: invalid revision height %q: %v", ErrMalformedInput, splitStr[1], err)
	}
	return NewHeight(revisionNumber, revisionHeight), nil
}

// IsRevisionFormat checks if a chainID is in the format required for parsing
// revisions. The chainID must be in the form: `{chainID}-{revision}`, e.g.
// `cosmoshub-4`.
var IsRevisionFormat = regexp.MustCompile(`^.*[^\n-]-{1}[1-9][0-9]*$`).MatchString

// ParseChainID parses the revision number out of a chainID in revision
// format. Chain IDs not in revision format have revision 0.
func ParseChainID(chainID string) uint64 {
	if !IsRevisionFormat(chainID) {
		return 0
	}
	splitStr := strings.Split(chainID, "-")
	revision, err := strconv.ParseUint(splitStr[len(splitStr)-1], 10, 64)
	if err != nil {
		return 0
	}
	return revision
}

// SetRevisionNumber takes a chainID in valid revision format and swaps the
// revision number in the chainID with the given revision number.
func SetRevisionNumber(chainID string, revision uint64) (string, error) {
	if !IsRevisionFormat(chainID) {
		return "", fmt.Errorf("%w: chainID %s is not in revision format", ErrMalformedInput, chainID)
	}
	splitStr := strings.Split(chainID, "-")
	splitStr[len(splitStr)-1] = strconv.FormatUint(revision, 10)
	return strings.Join(splitStr, "-"), nil
}
