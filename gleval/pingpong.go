package gleval

import (
	"errors"
	"fmt"
)

// Role is the part a physical surface plays during an accumulation pass.
type Role uint8

const (
	// RoleRead holds the currently valid accumulated image.
	RoleRead Role = iota
	// RoleWrite is scratch, valid only while a pass writes it.
	RoleWrite
)

func (r Role) String() string {
	switch r {
	case RoleRead:
		return "read"
	case RoleWrite:
		return "write"
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// PingPong is a pair of equally sized surfaces whose read and write roles
// swap after every accumulation pass. Read and write never alias.
type PingPong struct {
	surfaces [2]Surface
	// roles maps a role to a physical surface index.
	roles [2]uint8
}

// NewPingPong pairs two distinct surfaces of equal size. a starts in the read role.
func NewPingPong(a, b Surface) (*PingPong, error) {
	if a == nil || b == nil {
		return nil, errors.New("nil surface")
	} else if a == b {
		return nil, errSameSurface
	}
	aw, ah := a.Size()
	bw, bh := b.Size()
	if aw != bw || ah != bh {
		return nil, fmt.Errorf("%w: %dx%d and %dx%d", errSizeMismatch, aw, ah, bw, bh)
	}
	return &PingPong{
		surfaces: [2]Surface{a, b},
		roles:    [2]uint8{RoleRead: 0, RoleWrite: 1},
	}, nil
}

// Read returns the surface holding the accumulated image.
func (pp *PingPong) Read() Surface { return pp.surfaces[pp.roles[RoleRead]] }

// Write returns the scratch surface the next pass writes to.
func (pp *PingPong) Write() Surface { return pp.surfaces[pp.roles[RoleWrite]] }

// Physical returns the index of the physical surface currently playing role r.
func (pp *PingPong) Physical(r Role) int { return int(pp.roles[r]) }

// Swap exchanges the read and write roles.
func (pp *PingPong) Swap() {
	pp.roles[RoleRead], pp.roles[RoleWrite] = pp.roles[RoleWrite], pp.roles[RoleRead]
}

// Size returns the size shared by both surfaces.
func (pp *PingPong) Size() (width, height int) {
	return pp.surfaces[0].Size()
}

// Clear clears both physical surfaces to c. Roles are left as they are since
// both surfaces hold identical contents afterwards.
func (pp *PingPong) Clear(c RGBA) error {
	for i := range pp.surfaces {
		if err := pp.surfaces[i].Clear(c); err != nil {
			return fmt.Errorf("clearing surface %d: %w", i, err)
		}
	}
	return nil
}
