package workflow

import (
	"maestro/internal/agents"
	"maestro/internal/classify"
	"maestro/internal/constitution"
)

// DefaultPlan builds the standard phase sequence for a request category.
// Every plan ends with an audit phase so the world model reflects the run.
func DefaultPlan(category classify.Category) Plan {
	var descriptors []PhaseDescriptor

	switch category {
	case classify.CategoryDocumentation:
		descriptors = []PhaseDescriptor{
			{Name: "documentation", RequiredAgent: agents.NameDocumenter},
			{Name: "repository", RequiredAgent: agents.NameRepoHygienist},
		}
	case classify.CategoryDeployment:
		descriptors = []PhaseDescriptor{
			{Name: "deployment", RequiredAgent: agents.NameDeployer},
			{Name: "audit", RequiredAgent: agents.NameStatusAuditor},
		}
	case classify.CategoryAudit:
		descriptors = []PhaseDescriptor{
			{Name: "audit", RequiredAgent: agents.NameStatusAuditor},
		}
	default:
		// Bug fixes, features, refactors and unknown requests get the
		// full lifecycle.
		descriptors = []PhaseDescriptor{
			{Name: "generation", RequiredAgent: agents.NameCodeGenerator},
			{Name: "testing", RequiredAgent: agents.NameTestGenerator},
			{Name: "deployment", RequiredAgent: agents.NameDeployer},
			{Name: "documentation", RequiredAgent: agents.NameDocumenter},
			{Name: "repository", RequiredAgent: agents.NameRepoHygienist},
			{Name: "audit", RequiredAgent: agents.NameStatusAuditor},
		}
	}

	plan := Plan{Phases: descriptors}
	seen := make(map[string]bool)
	for i := range plan.Phases {
		plan.Phases[i].Facts = constitution.CompliantFacts()
		if !seen[plan.Phases[i].RequiredAgent] {
			seen[plan.Phases[i].RequiredAgent] = true
			plan.Agents = append(plan.Agents, plan.Phases[i].RequiredAgent)
		}
	}
	return plan
}
