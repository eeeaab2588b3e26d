package enums

// MemberRole is a store permission level. SuperAdmin is a platform role minted
// into tokens for rows in super_admins; it never appears in store_memberships.
type MemberRole string

const (
	MemberRoleOwner      MemberRole = "owner"
	MemberRoleManager    MemberRole = "manager"
	MemberRoleStaff      MemberRole = "staff"
	MemberRoleSuperAdmin MemberRole = "super_admin"
)

var memberRoles = values[MemberRole]{MemberRoleOwner, MemberRoleManager, MemberRoleStaff, MemberRoleSuperAdmin}

func (m MemberRole) String() string { return string(m) }

func (m MemberRole) IsValid() bool { return memberRoles.has(m) }

// IsStoreRole reports whether the role can be stored on a membership.
func (m MemberRole) IsStoreRole() bool {
	return m.IsValid() && m != MemberRoleSuperAdmin
}

func ParseMemberRole(value string) (MemberRole, error) {
	return memberRoles.parse(value, "member role")
}
