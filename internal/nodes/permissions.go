package nodes

// Permissions is the domain-granted permission bitset for a session.
type Permissions uint32

const (
	PermissionConnect Permissions = 1 << iota
	PermissionAdjustLocks
	PermissionRezPermanent
	PermissionRezTemporary
	PermissionWriteAssets
	PermissionConnectPastMaxCapacity
	PermissionKick
	PermissionReplaceContent
)

// Has reports whether all bits in p are granted.
func (perms Permissions) Has(p Permissions) bool {
	return perms&p == p
}

// CanKick reports whether the session may issue administrative
// mute/kick requests.
func (perms Permissions) CanKick() bool {
	return perms.Has(PermissionKick)
}
