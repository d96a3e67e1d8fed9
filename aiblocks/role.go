package aiblocks

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

var Roles = []Role{
	RoleUser,
	RoleAssistant,
	RoleSystem,
}
