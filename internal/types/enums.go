package types

type NodeState string

const (
	NodeStatePending   NodeState = "pending"
	NodeStateResolving NodeState = "resolving"
	NodeStateResolved  NodeState = "resolved"
	NodeStateSatisfied NodeState = "satisfied"
	NodeStateFailed    NodeState = "failed"
)

// Origin records where a node's recipe or binary comes from.
type Origin string

const (
	OriginAUR  Origin = "aur"
	OriginRepo Origin = "repo"
)

type Outcome string

const (
	OutcomeBuilt            Outcome = "built"
	OutcomeAlreadySatisfied Outcome = "already-satisfied"
	OutcomeFailed           Outcome = "failed"
	OutcomeSkipped          Outcome = "skipped"
)

type RecipeSource string

const (
	RecipeSourceGit      RecipeSource = "git"
	RecipeSourceMirror   RecipeSource = "mirror"
	RecipeSourceSnapshot RecipeSource = "snapshot"
)

type ConstraintOp string

const (
	ConstraintOpNone ConstraintOp = ""
	ConstraintOpEq   ConstraintOp = "="
	ConstraintOpGte  ConstraintOp = ">="
	ConstraintOpLte  ConstraintOp = "<="
	ConstraintOpGt   ConstraintOp = ">"
	ConstraintOpLt   ConstraintOp = "<"
)
