package action

import "fmt"

// Handlers are advisory: each returns the change it describes without
// touching the live workflow. Applying results is the caller's job.

func updateConfig(data map[string]any) (Result, error) {
	updates, _ := data["updates"].(map[string]any)
	return Result{
		Success: true,
		Message: "Configuration updated successfully",
		Data: map[string]any{
			"config_path": data["config_path"],
			"updates":     updates,
		},
	}, nil
}

func installNode(data map[string]any) (Result, error) {
	nodeName := data["node_name"]
	nodeURL, _ := data["node_url"].(string)

	var installCommand any
	if nodeURL != "" {
		installCommand = "pip install " + nodeURL
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf("Node %v installation initiated", nodeName),
		Data: map[string]any{
			"node_name":       nodeName,
			"node_url":        data["node_url"],
			"install_command": installCommand,
		},
	}, nil
}

func modifyWorkflow(data map[string]any) (Result, error) {
	modifications, _ := data["modifications"].(map[string]any)
	return Result{
		Success: true,
		Message: "Workflow modified successfully",
		Data: map[string]any{
			"workflow":      data["workflow"],
			"modifications": modifications,
		},
	}, nil
}

func fixConnection(data map[string]any) (Result, error) {
	fromSlot, ok := data["from_slot"]
	if !ok {
		fromSlot = 0
	}
	toSlot, ok := data["to_slot"]
	if !ok {
		toSlot = 0
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf("Connection fixed between node %v and %v", data["from_node_id"], data["to_node_id"]),
		Data: map[string]any{
			"from_node_id": data["from_node_id"],
			"to_node_id":   data["to_node_id"],
			"from_slot":    fromSlot,
			"to_slot":      toSlot,
		},
	}, nil
}

func resetNode(data map[string]any) (Result, error) {
	defaults, _ := data["default_values"].(map[string]any)
	return Result{
		Success: true,
		Message: fmt.Sprintf("Node %v reset to default values", data["node_id"]),
		Data: map[string]any{
			"node_id":        data["node_id"],
			"default_values": defaults,
		},
	}, nil
}
