package task

import "fmt"

// StatusMeta 状态的展示与分类元数据
type StatusMeta struct {
	LabelKey      string `json:"label_key"`
	Color         string `json:"color"`
	Terminal      bool   `json:"terminal"`
	StaffEditable bool   `json:"staff_editable"`
	Completion    bool   `json:"completion"`
	ManagerGate   bool   `json:"manager_gate"`
}

// statusTable 每个状态必须在此登记,ValidateStatusTable 在 init 中检查
var statusTable = map[Status]StatusMeta{
	StatusDraft:           {LabelKey: "status.draft", Color: "gray", StaffEditable: true},
	StatusPendingApproval: {LabelKey: "status.pending_approval", Color: "amber", ManagerGate: true},
	StatusApproved:        {LabelKey: "status.approved", Color: "teal", ManagerGate: true},
	StatusTodo:            {LabelKey: "status.todo", Color: "slate"},
	StatusInProgress:      {LabelKey: "status.in_progress", Color: "blue"},
	StatusDone:            {LabelKey: "status.done", Color: "green", Terminal: true, Completion: true},
	StatusFinished:        {LabelKey: "status.finished", Color: "green", Terminal: true, Completion: true},
	StatusDelayed:         {LabelKey: "status.delayed", Color: "orange", Terminal: true},
	StatusCancelled:       {LabelKey: "status.cancelled", Color: "zinc", Terminal: true},
	StatusRejected:        {LabelKey: "status.rejected", Color: "red", Terminal: true, StaffEditable: true},
	StatusOverdue:         {LabelKey: "status.overdue", Color: "rose"},
}

func init() {
	if err := ValidateStatusTable(); err != nil {
		panic(err)
	}
}

// ValidateStatusTable 检查状态元数据表覆盖全部状态
func ValidateStatusTable() error {
	if len(statusTable) != len(AllStatuses) {
		return fmt.Errorf("status table has %d entries, want %d", len(statusTable), len(AllStatuses))
	}
	for _, s := range AllStatuses {
		if _, ok := statusTable[s]; !ok {
			return fmt.Errorf("status %q missing from status table", s)
		}
	}
	return nil
}

// Meta 返回状态元数据
func (s Status) Meta() StatusMeta {
	return statusTable[s]
}

// IsTerminal 是否为终态 (常规流程下不再流转)
func (s Status) IsTerminal() bool {
	return statusTable[s].Terminal
}

// IsCompletion 是否为完成态
func (s Status) IsCompletion() bool {
	return statusTable[s].Completion
}

// IsStaffEditable 员工是否可以继续编辑
func (s Status) IsStaffEditable() bool {
	return statusTable[s].StaffEditable
}
