package domain

// Group is the membership and settings document a quiz belongs to.
type Group struct {
	ID             string   `json:"id" bson:"_id"`
	AdminUID       string   `json:"adminUid" bson:"adminUid"`
	CreatedByUID   string   `json:"createdByUid" bson:"createdByUid"`
	MemberUIDs     []string `json:"memberUids" bson:"memberUids"`
	CurrentYear    int      `json:"currentYear" bson:"currentYear"`
	QuizDifficulty string   `json:"quizDifficulty" bson:"quizDifficulty"`
}

// Admin returns the uid allowed to force quiz regeneration. Older group
// documents only carry createdByUid.
func (g *Group) Admin() string {
	if g.AdminUID != "" {
		return g.AdminUID
	}
	return g.CreatedByUID
}
