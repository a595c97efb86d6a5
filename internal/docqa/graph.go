package docqa

import (
	"errors"

	"github.com/spigell/resume-agent/internal/graph"
	"github.com/spigell/resume-agent/internal/state"
)

// Stage names.
const (
	NodeRetrieve       = "retrieve"
	NodeGrade          = "grade"
	NodeExtractContact = "extract_contact"
	NodeAnalyzeSource  = "analyze_source"
	NodeExtractMetric  = "extract_metric"
	NodeCheckThreshold = "check_threshold"
	NodeNotify         = "notify"
	NodeGenerate       = "generate"
)

func byRoute(s *state.State) string { return s.Route.String() }

// Build compiles the document graph:
//
//	retrieve -> grade -> (retrieve | extract_contact) -> analyze_source ->
//	extract_metric -> check_threshold -> (notify | generate) -> generate -> END
//
// retrieve runs at most MaxRetrievals times per run; a further loop-back is
// redirected to generate.
func Build(deps Deps) (*graph.Runnable[*state.State], error) {
	if deps.Retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if deps.Generator == nil {
		return nil, errors.New("generator is required")
	}

	n := NewNodes(deps)

	return graph.New[*state.State](n.logger).
		AddNode(NodeRetrieve, n.Retrieve).
		AddNode(NodeGrade, n.Grade).
		AddNode(NodeExtractContact, n.ExtractContact).
		AddNode(NodeAnalyzeSource, n.AnalyzeSource).
		AddNode(NodeExtractMetric, n.ExtractMetric).
		AddNode(NodeCheckThreshold, n.CheckThreshold).
		AddNode(NodeNotify, n.Notify).
		AddNode(NodeGenerate, n.Generate).
		SetEntryPoint(NodeRetrieve).
		AddEdge(NodeRetrieve, NodeGrade).
		AddConditionalEdges(NodeGrade, byRoute, map[string]string{
			state.RouteRetrieve.String(): NodeRetrieve,
			state.RouteGenerate.String(): NodeExtractContact,
		}).
		AddEdge(NodeExtractContact, NodeAnalyzeSource).
		AddEdge(NodeAnalyzeSource, NodeExtractMetric).
		AddEdge(NodeExtractMetric, NodeCheckThreshold).
		AddConditionalEdges(NodeCheckThreshold, byRoute, map[string]string{
			state.RouteNotify.String():   NodeNotify,
			state.RouteGenerate.String(): NodeGenerate,
		}).
		AddEdge(NodeNotify, NodeGenerate).
		AddEdge(NodeGenerate, graph.END).
		SetMaxVisits(NodeRetrieve, n.deps.MaxRetrievals, NodeGenerate).
		Compile()
}
