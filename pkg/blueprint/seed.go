package blueprint

import (
	"context"
	"fmt"

	"github.com/coreflow-dev/agentcore/pkg/model"
)

// Seeds returns the illustrative blueprint catalog named in SPEC_FULL.md §C,
// mined from original_source's templates/*.py (support, triage, qa_test,
// onboarding, sentiment_monitor, knowledge_manager). Each is a thin
// ToolChainBehavior over a handful of stub tools — real deployments replace
// Tool.Invoke with calls into their own backends; what orchestratorctl and
// the registry care about is the plan/act contract, not tool bodies.
func Seeds() []model.Blueprint {
	return []model.Blueprint{
		supportBlueprint(),
		triageBlueprint(),
		qaTestBlueprint(),
		onboardingBlueprint(),
		sentimentMonitorBlueprint(),
		knowledgeManagerBlueprint(),
	}
}

func echoTool(name, field string) model.Tool {
	return model.Tool{
		Name:        name,
		Description: fmt.Sprintf("stub tool %q, echoes its input under %q", name, field),
		Invoke: func(_ context.Context, input map[string]any) (map[string]any, error) {
			return map[string]any{field: input, "tool": name}, nil
		},
	}
}

func supportBlueprint() model.Blueprint {
	chain := []string{"classify_ticket", "search_knowledge_base", "draft_response"}
	return model.Blueprint{
		Name:        "support",
		Description: "customer support ticket triage and response drafting",
		Behavior:    &ToolChainBehavior{Chain: chain, EarlyFinishOn: "confidence"},
		Tools: map[string]model.Tool{
			"classify_ticket":       echoTool("classify_ticket", "classification"),
			"search_knowledge_base": echoTool("search_knowledge_base", "matches"),
			"draft_response":        echoTool("draft_response", "draft"),
		},
		Defaults: model.AgentConfig{MaxIterations: 10, TimeoutSeconds: 120, ConfidenceThreshold: 0.75, RequireHumanApproval: true},
	}
}

func triageBlueprint() model.Blueprint {
	chain := []string{"assess_severity", "route_to_queue"}
	return model.Blueprint{
		Name:        "triage",
		Description: "incoming-request severity assessment and routing",
		Behavior:    &ToolChainBehavior{Chain: chain},
		Tools: map[string]model.Tool{
			"assess_severity": echoTool("assess_severity", "severity"),
			"route_to_queue":  echoTool("route_to_queue", "queue"),
		},
		Defaults: model.AgentConfig{MaxIterations: 5, TimeoutSeconds: 60, ConfidenceThreshold: 0.6, RequireHumanApproval: false},
	}
}

func qaTestBlueprint() model.Blueprint {
	chain := []string{"generate_test_cases", "run_test_cases", "summarize_results"}
	return model.Blueprint{
		Name:        "qa_test",
		Description: "generates and runs exploratory QA test cases against a target",
		Behavior:    &ToolChainBehavior{Chain: chain},
		Tools: map[string]model.Tool{
			"generate_test_cases": echoTool("generate_test_cases", "cases"),
			"run_test_cases":      echoTool("run_test_cases", "results"),
			"summarize_results":   echoTool("summarize_results", "summary"),
		},
		Defaults: model.AgentConfig{MaxIterations: 20, TimeoutSeconds: 900, ConfidenceThreshold: 0.8, RequireHumanApproval: false},
	}
}

func onboardingBlueprint() model.Blueprint {
	chain := []string{"collect_account_info", "provision_resources", "send_welcome_sequence"}
	return model.Blueprint{
		Name:        "onboarding",
		Description: "new-customer account setup and welcome sequencing",
		Behavior:    &ToolChainBehavior{Chain: chain},
		Tools: map[string]model.Tool{
			"collect_account_info":  echoTool("collect_account_info", "account"),
			"provision_resources":   echoTool("provision_resources", "provisioned"),
			"send_welcome_sequence": echoTool("send_welcome_sequence", "sent"),
		},
		Defaults: model.AgentConfig{MaxIterations: 8, TimeoutSeconds: 300, ConfidenceThreshold: 0.5, RequireHumanApproval: true},
	}
}

func sentimentMonitorBlueprint() model.Blueprint {
	chain := []string{"score_sentiment", "flag_if_negative"}
	return model.Blueprint{
		Name:        "sentiment_monitor",
		Description: "scores conversation sentiment and flags at-risk threads",
		Behavior:    &ToolChainBehavior{Chain: chain},
		Tools: map[string]model.Tool{
			"score_sentiment":  echoTool("score_sentiment", "score"),
			"flag_if_negative": echoTool("flag_if_negative", "flagged"),
		},
		Defaults: model.AgentConfig{MaxIterations: 4, TimeoutSeconds: 30, ConfidenceThreshold: 0.65, RequireHumanApproval: false},
	}
}

func knowledgeManagerBlueprint() model.Blueprint {
	chain := []string{"identify_gap", "draft_article", "submit_for_review"}
	return model.Blueprint{
		Name:        "knowledge_manager",
		Description: "identifies knowledge-base gaps and drafts articles for review",
		Behavior:    &ToolChainBehavior{Chain: chain},
		Tools: map[string]model.Tool{
			"identify_gap":      echoTool("identify_gap", "gap"),
			"draft_article":     echoTool("draft_article", "article"),
			"submit_for_review": echoTool("submit_for_review", "submitted"),
		},
		Defaults: model.AgentConfig{MaxIterations: 6, TimeoutSeconds: 180, ConfidenceThreshold: 0.7, RequireHumanApproval: true},
	}
}
