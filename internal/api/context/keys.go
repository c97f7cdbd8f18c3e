package context

type Key string

const (
	Principal Key = "principal"
	Session   Key = "session"
	Params    Key = "params"
	Token     Key = "token"
)
