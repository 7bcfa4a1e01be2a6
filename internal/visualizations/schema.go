package visualizations

// FlowchartData is the payload of a flowchart visualization.
type FlowchartData struct {
	Nodes []FlowchartNode `json:"nodes"`
	Edges []FlowchartEdge `json:"edges"`
}

type FlowchartNode struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Position FlowchartPosition `json:"position"`
	Data     FlowchartNodeData `json:"data"`
}

type FlowchartPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type FlowchartNodeData struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

type FlowchartEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// MindmapNode is a node of the mindmap tree; the root is the payload.
type MindmapNode struct {
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	Children []MindmapNode `json:"children,omitempty"`
}

// CornellNote is the payload of a Cornell notes visualization.
type CornellNote struct {
	Cues    string `json:"cues"`
	Notes   string `json:"notes"`
	Summary string `json:"summary"`
}
