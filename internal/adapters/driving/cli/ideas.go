package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

var ideasCmd = &cobra.Command{
	Use:   "ideas",
	Short: "Explore the idea graph",
	Long: `Diary entries form the nodes of the idea graph. Entries are linked
when one is similar to, builds on, opposes or contradicts another.`,
	RunE: runIdeasGraph,
}

var ideasGraphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the idea graph",
	RunE:  runIdeasGraph,
}

func init() {
	ideasCmd.PersistentFlags().Bool("json", false, "Print nodes and edges as JSON")
	ideasCmd.AddCommand(ideasGraphCmd)
	rootCmd.AddCommand(ideasCmd)
}

type graphJSON struct {
	Nodes []nodeJSON `json:"nodes"`
	Edges []edgeJSON `json:"edges"`
}

type nodeJSON struct {
	ID      string   `json:"id"`
	Content string   `json:"content"`
	Mood    string   `json:"mood,omitempty"`
	Tags    []string `json:"tags"`
}

type edgeJSON struct {
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	Type      string  `json:"type"`
	Strength  float64 `json:"strength"`
	Reasoning string  `json:"reasoning,omitempty"`
}

func runIdeasGraph(cmd *cobra.Command, _ []string) error {
	if ideaService == nil {
		return errors.New("idea service not configured")
	}

	asJSON, _ := cmd.Flags().GetBool("json")

	owner, err := resolveOwner(cmd)
	if err != nil {
		return err
	}

	graph, err := ideaService.IdeaGraph(commandContext(cmd), owner.ID)
	if err != nil {
		return fmt.Errorf("failed to load idea graph: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(toGraphJSON(graph))
	}

	if len(graph.Nodes) == 0 {
		cmd.Println("No diary entries yet.")
		return nil
	}

	labels := make(map[string]string, len(graph.Nodes))
	cmd.Println(titleStyle.Render(fmt.Sprintf("Ideas (%d):", len(graph.Nodes))))
	for i, node := range graph.Nodes {
		label := fmt.Sprintf("#%d", i+1)
		labels[node.ID] = label
		line := fmt.Sprintf("%s %s", headingStyle.Render(label), preview(node.Content, 100))
		if len(node.Tags) > 0 {
			line += " " + mutedStyle.Render("["+strings.Join(node.Tags, ", ")+"]")
		}
		cmd.Println(line)
	}

	if len(graph.Edges) == 0 {
		return nil
	}
	cmd.Println()
	cmd.Println(titleStyle.Render(fmt.Sprintf("Links (%d):", len(graph.Edges))))
	for _, edge := range graph.Edges {
		cmd.Printf("%s --%s %.2f--> %s\n",
			labelFor(labels, edge.SourceID), edge.Type, edge.Strength, labelFor(labels, edge.TargetID))
		if edge.Reasoning != "" {
			cmd.Printf("    %s\n", mutedStyle.Render(edge.Reasoning))
		}
	}
	return nil
}

func labelFor(labels map[string]string, id string) string {
	if l, ok := labels[id]; ok {
		return l
	}
	return id
}

func toGraphJSON(graph *domain.IdeaGraph) graphJSON {
	out := graphJSON{
		Nodes: make([]nodeJSON, 0, len(graph.Nodes)),
		Edges: make([]edgeJSON, 0, len(graph.Edges)),
	}
	for _, n := range graph.Nodes {
		tags := n.Tags
		if tags == nil {
			tags = []string{}
		}
		out.Nodes = append(out.Nodes, nodeJSON{ID: n.ID, Content: n.Content, Mood: n.Mood, Tags: tags})
	}
	for _, e := range graph.Edges {
		out.Edges = append(out.Edges, edgeJSON{
			Source:    e.SourceID,
			Target:    e.TargetID,
			Type:      string(e.Type),
			Strength:  e.Strength,
			Reasoning: e.Reasoning,
		})
	}
	return out
}
