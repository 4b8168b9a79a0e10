package ordering

import (
	"github.com/bwmarrin/snowflake"
)

// Partition names the ordering space of an issue: its sprint when it has
// one, otherwise its project's backlog. Together with a status it forms the
// group whose orders are kept dense.
type Partition string

func SprintPartition(sprintID snowflake.ID) Partition {
	return Partition("sprint:" + sprintID.String())
}

func ProjectPartition(projectID snowflake.ID) Partition {
	return Partition("project:" + projectID.String())
}

func PartitionFor(projectID snowflake.ID, sprintID *snowflake.ID) Partition {
	if sprintID != nil && *sprintID != 0 {
		return SprintPartition(*sprintID)
	}
	return ProjectPartition(projectID)
}

// Group is one (partition, status) ordering group.
type Group struct {
	Partition Partition
	Status    string
}
