package models

// Member "inherits" from Agent via embedding. The distinguishing field is UserType.
// Members run the back office; they may or may not sit in a referral chain.
type Member struct {
	Agent
}

// NewMember creates a member model with UserType preset to MEMBER.
func NewMember(username, email string) *Member {
	return &Member{Agent: Agent{UserName: username, Email: email, UserType: UserTypeMember, AgentType: AgentTypeBasic}}
}
