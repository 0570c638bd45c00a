package importer

import (
	"testing"

	"github.com/JonMunkholm/dryerlog/internal/schema"
)

const testCatalog = `
version: 1
models: [vt1, vt8]
techTempPoints:
  - {id: "1", label: "技術溫測實溫_1"}
airVolumePoints:
  vt8:
    - {id: supply, label: "供氣", area: 1}
fields:
  - {id: recordType, dataKey: recordType, csvHeader: "類型", label: "類型", type: select, inTable: true, order: 1}
  - {id: dryerModel, dataKey: dryerModel, csvHeader: "機台型號", label: "機台型號", type: select, inTable: true, order: 2}
  - {id: dateTime, dataKey: dateTime, csvHeader: "日期時間", label: "日期時間", type: datetime, inTable: true, order: 3}
  - {id: rtoStatus, dataKey: rtoStatus, csvHeader: "RTO啟用狀態", label: "RTO", type: select, inTable: true, order: 4}
  - {id: speed1, dataKey: hmiData.air_speed_1, csvHeader: "AirSpeed1", label: "AirSpeed1", type: number, inTable: true}
  - {id: speed2, dataKey: hmiData.air_speed_2, csvHeader: "{MODEL}_AirSpeed2", label: "AirSpeed2", type: number, inTable: true}
  - {id: recipe, dataKey: hmiData.recipe, csvHeader: "配方", label: "配方", type: text, inTable: true}
  - {id: note, dataKey: remark, label: "備註", type: textarea, inTable: true, order: 9000}
`

func mustCatalog(t *testing.T) *schema.Catalog {
	t.Helper()
	c, err := schema.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("schema.Parse: %v", err)
	}
	return c
}
