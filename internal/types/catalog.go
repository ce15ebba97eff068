package types

type Application struct {
	ID          string               `yaml:"id" json:"id" toml:"id"`
	Name        string               `yaml:"name" json:"name" toml:"name"`
	Description string               `yaml:"description,omitempty" json:"description,omitempty" toml:"description,omitempty"`
	Category    string               `yaml:"category,omitempty" json:"category,omitempty" toml:"category,omitempty"`
	Targets     map[ManagerID]string `yaml:"targets" json:"targets" toml:"targets"`
}

// Target returns the package identifier for the manager. An application is
// offered on a manager only when the mapping exists and is non-empty.
func (a Application) Target(manager ManagerID) (string, bool) {
	target, ok := a.Targets[manager]
	if !ok || target == "" {
		return "", false
	}
	return target, true
}

func (a Application) Available(manager ManagerID) bool {
	_, ok := a.Target(manager)
	return ok
}

type Catalog struct {
	Applications []Application `yaml:"applications" json:"applications" toml:"applications"`
}

func (c Catalog) Find(id string) (Application, bool) {
	for _, app := range c.Applications {
		if app.ID == id {
			return app, true
		}
	}
	return Application{}, false
}

type ManagerDescriptor struct {
	ID         ManagerID
	Label      string
	OS         OSFamily
	Dialect    ScriptDialect
	Verifiable bool
}
