// Package snapshot defines the JSON-serializable capture format
// vtxinspect reads: a point-in-time dump of a vCPU's VMCS fields and
// pending-interrupt queue, produced by some out-of-scope capture tool
// (e.g. a panic handler recording state before halting the CPU). It is
// a pure data/decode layer — it never touches a Host or real hardware.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ironlatch/vtxcore/vcpu"
)

// Snapshot is the top-level capture: every VMCS field the capturing
// tool chose to record, plus the vCPU's pending-interrupt queue at
// capture time.
type Snapshot struct {
	VCPUIndex int              `json:"vcpu_index"`
	Fields    map[string]uint64 `json:"fields"`
	Pending   []PendingEvent    `json:"pending,omitempty"`
}

// PendingEvent mirrors vcpu.PendingInterrupt in a JSON-friendly shape.
type PendingEvent struct {
	Vector         uint8  `json:"vector"`
	Type           uint8  `json:"type"`
	Valid          bool   `json:"valid"`
	ErrorCodeValid bool   `json:"error_code_valid"`
	ErrorCode      uint32 `json:"error_code"`
}

// Decode parses a JSON snapshot document from r.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	return &s, nil
}

// Field looks up a named field's raw value and reports whether it was
// present in the capture.
func (s *Snapshot) Field(name string) (uint64, bool) {
	v, ok := s.Fields[name]
	return v, ok
}

// ExitReason decodes the "vmexit_reason" field, if captured.
func (s *Snapshot) ExitReason() (vcpu.ExitReason, bool) {
	v, ok := s.Field("vmexit_reason")
	return vcpu.ExitReason(v), ok
}

// ExitInterruptionInfo decodes the "vmexit_intr_info" field, if
// captured.
func (s *Snapshot) ExitInterruptionInfo() (vcpu.InterruptionInfo, bool) {
	v, ok := s.Field("vmexit_intr_info")
	if !ok {
		return vcpu.InterruptionInfo{}, false
	}
	return vcpu.DecodeInterruptionInfo(uint32(v)), true
}

// IDTVectoringInfo decodes the "idt_vectoring_info" field, if captured.
func (s *Snapshot) IDTVectoringInfo() (vcpu.InterruptionInfo, bool) {
	v, ok := s.Field("idt_vectoring_info")
	if !ok {
		return vcpu.InterruptionInfo{}, false
	}
	return vcpu.DecodeInterruptionInfo(uint32(v)), true
}

// ExitInstructionInfo decodes the "vmexit_instruction_info" field, if
// captured.
func (s *Snapshot) ExitInstructionInfo() (vcpu.InstructionInfo, bool) {
	v, ok := s.Field("vmexit_instruction_info")
	if !ok {
		return vcpu.InstructionInfo{}, false
	}
	return vcpu.DecodeInstructionInfo(uint32(v)), true
}

// PendingAsInterrupts converts the snapshot's raw pending events into
// vcpu.PendingInterrupt values, for callers that want to feed them back
// through vcpu.VCPU.Inject after reconstructing a vCPU (e.g. a
// postmortem replay tool, out of scope here).
func (s *Snapshot) PendingAsInterrupts() []vcpu.PendingInterrupt {
	out := make([]vcpu.PendingInterrupt, 0, len(s.Pending))
	for _, p := range s.Pending {
		out = append(out, vcpu.PendingInterrupt{
			Info: vcpu.InterruptionInfo{
				Valid:          p.Valid,
				Vector:         p.Vector,
				Type:           vcpu.InterruptType(p.Type),
				ErrorCodeValid: p.ErrorCodeValid,
			},
			ErrorCode: p.ErrorCode,
			RIPAdjust: vcpu.RIPAdjustFromExitLength(),
		})
	}
	return out
}
