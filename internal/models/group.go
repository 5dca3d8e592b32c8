package models

// Group is a set of members who record expenses together.
// A group owns its expenses and settlements.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Cape Town trip").
	Name string

	// Description is optional free text.
	Description string

	// JoinCode is the unique code other users enter to join the group.
	JoinCode string

	// Currency is the ISO 4217 code every expense in the group is recorded in.
	Currency string

	// CreatedBy is the user ID of the creator, who is also the first member.
	CreatedBy string

	// Members is every current and historical member in join order.
	Members []Member

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// Member is one person in a group.
type Member struct {
	// ID is unique within the group. For members with an account it equals the
	// user ID; guest members get a generated UUID.
	ID string

	// DisplayName is shown in balances and expense lists.
	DisplayName string

	// UserID links the member to an account. Empty for guests.
	UserID string

	// Position is the 0-based join order within the group.
	Position int

	// JoinedAt is the Unix timestamp when the member joined.
	JoinedAt int64

	// LeftAt is the Unix timestamp when the member left, 0 while still active.
	// Members who left stay in the roster so historical expenses still resolve.
	LeftAt int64
}

// Active reports whether the member currently belongs to the group.
func (m Member) Active() bool {
	return m.LeftAt == 0
}

// FindMember returns the member with the given ID.
func (g *Group) FindMember(memberID string) (Member, bool) {
	for _, m := range g.Members {
		if m.ID == memberID {
			return m, true
		}
	}
	return Member{}, false
}

// IsActiveMember reports whether memberID is a current member of the group.
func (g *Group) IsActiveMember(memberID string) bool {
	m, ok := g.FindMember(memberID)
	return ok && m.Active()
}

// ActiveMembers returns the current members in join order.
func (g *Group) ActiveMembers() []Member {
	active := make([]Member, 0, len(g.Members))
	for _, m := range g.Members {
		if m.Active() {
			active = append(active, m)
		}
	}
	return active
}
