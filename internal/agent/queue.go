package agent

// TaskQueueState tracks linear progress through a verified plan. It is a
// value type owned by a single goroutine; callers needing persistence can
// serialize it wholesale.
type TaskQueueState struct {
	Items  []TaskStep `json:"items"`
	Cursor int        `json:"cursor"`
	Failed bool       `json:"failed"`
}

// Push appends steps to the end of the queue.
func (q *TaskQueueState) Push(steps ...TaskStep) {
	q.Items = append(q.Items, steps...)
}

// Next returns the step under the cursor and advances past it. It returns
// false once the queue is exhausted or has been marked failed.
func (q *TaskQueueState) Next() (TaskStep, bool) {
	if q.Failed || q.Cursor >= len(q.Items) {
		return TaskStep{}, false
	}
	step := q.Items[q.Cursor]
	q.Cursor++
	return step, true
}

// Fail marks the plan as aborted; remaining steps will not be served.
func (q *TaskQueueState) Fail() {
	q.Failed = true
}

// Remaining reports how many steps have not yet been served.
func (q *TaskQueueState) Remaining() int {
	if q.Failed || q.Cursor >= len(q.Items) {
		return 0
	}
	return len(q.Items) - q.Cursor
}

// Reset clears the queue for a new plan.
func (q *TaskQueueState) Reset() {
	q.Items = q.Items[:0]
	q.Cursor = 0
	q.Failed = false
}
