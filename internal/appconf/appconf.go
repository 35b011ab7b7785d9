package appconf

// Environment describes the operating environment of the application.
// It controls things like database placement (tests must use :memory:)
// and logging verbosity defaults.
type Environment int

const (
	Development Environment = iota
	Test
	Staging
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Staging:
		return "staging"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFlagToEnvironment maps a command-line environment name to an Environment.
// Unknown values fall back to Development.
func EnvFlagToEnvironment(name string) Environment {
	switch name {
	case "test":
		return Test
	case "staging":
		return Staging
	case "production":
		return Production
	default:
		return Development
	}
}
