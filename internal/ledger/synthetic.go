package ledger

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/medledger/chain-api/pkg/canonical"
)

var recordTypes = []string{"lab_result", "diagnosis", "prescription", "vital_signs"}

// GenerateHealthcareData produces one synthetic healthcare record serialized
// as JSON, padded to roughly sizeKB kilobytes for batch mining runs.
func GenerateHealthcareData(sizeKB int) string {
	record := map[string]interface{}{
		"patient_id":  fmt.Sprintf("PATIENT_%04d", rand.Intn(9000)+1000),
		"record_type": recordTypes[rand.Intn(len(recordTypes))],
		"timestamp":   time.Now().Format(time.RFC3339Nano),
		"provider_id": fmt.Sprintf("PROVIDER_%03d", rand.Intn(900)+100),
		"encrypted":   true,
		"ipfs_hash":   "Qm" + canonical.HashHex(fmt.Sprintf("%d", rand.Uint64()))[:44],
	}

	base, err := canonical.MarshalString(record)
	if err != nil {
		// A map of strings and bools always marshals.
		panic("ledger: synthetic record not serializable: " + err.Error())
	}

	padding := sizeKB*1024 - len(base)
	if padding > 0 {
		record["data_payload"] = strings.Repeat("x", padding)
	}

	out, _ := canonical.MarshalString(record)
	return out
}
