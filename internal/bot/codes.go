package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sqids/sqids-go"
)

// Codec turns task ids into the short codes members type in chat.
type Codec struct {
	sqids *sqids.Sqids
}

func NewCodec() (*Codec, error) {
	s, err := sqids.New(sqids.Options{MinLength: 5})
	if err != nil {
		return nil, fmt.Errorf("create sqids: %w", err)
	}
	return &Codec{sqids: s}, nil
}

func (c *Codec) Encode(id uint) string {
	code, err := c.sqids.Encode([]uint64{uint64(id)})
	if err != nil {
		return strconv.FormatUint(uint64(id), 10)
	}
	return code
}

// Decode accepts a short code or a plain numeric id, with or without a leading '#'.
func (c *Codec) Decode(code string) (uint, error) {
	code = strings.TrimPrefix(strings.TrimSpace(code), "#")
	if code == "" {
		return 0, fmt.Errorf("empty task code")
	}
	if ids := c.sqids.Decode(code); len(ids) == 1 && ids[0] > 0 {
		// Only canonical codes count; sqids decodes some garbage too.
		if c.Encode(uint(ids[0])) == code {
			return uint(ids[0]), nil
		}
	}
	id, err := strconv.ParseUint(code, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("unknown task code %q", code)
	}
	return uint(id), nil
}
