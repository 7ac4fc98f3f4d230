package dataset

// Sales table columns, as published by the Seoul commercial-district dataset.
const (
	ColYear         = "기준_년_코드"
	ColQuarter      = "기준_분기_코드"
	ColDistrict     = "구"
	ColCategory     = "서비스_업종_코드_명"
	ColRevenue      = "분기당_매출_금액"
	ColTransactions = "분기당_매출_건수"
	ColStores       = "점포수"
	ColLat          = "lat"
	ColLon          = "lot"
	ColWeekday      = "주중_매출_금액"
	ColWeekend      = "주말_매출_금액"
)

// Rent table.
const ColAnnualRent = "연평균임대료"

// Columns added by Merge.
const (
	ColRentPerArea    = "평당 임대료"
	ColRentKnown      = "임대료_유효"
	ColMonthlyRevenue = "매장 월평균 매출"
	ColAvgTicket      = "객단가"
)

// slice names a revenue column (and, where the source has one, its
// transaction-count column) under a display label.
type slice struct {
	Label   string
	Revenue string
	Count   string
}

var genderSlices = []slice{
	{"남성", "남성_매출_금액", "남성_매출_건수"},
	{"여성", "여성_매출_금액", "여성_매출_건수"},
}

var daySlices = []slice{
	{Label: "월", Revenue: "월요일_매출_금액"},
	{Label: "화", Revenue: "화요일_매출_금액"},
	{Label: "수", Revenue: "수요일_매출_금액"},
	{Label: "목", Revenue: "목요일_매출_금액"},
	{Label: "금", Revenue: "금요일_매출_금액"},
	{Label: "토", Revenue: "토요일_매출_금액"},
	{Label: "일", Revenue: "일요일_매출_금액"},
}

var ageSlices = []slice{
	{"10대", "연령대_10_매출_금액", "연령대_10_매출_건수"},
	{"20대", "연령대_20_매출_금액", "연령대_20_매출_건수"},
	{"30대", "연령대_30_매출_금액", "연령대_30_매출_건수"},
	{"40대", "연령대_40_매출_금액", "연령대_40_매출_건수"},
	{"50대", "연령대_50_매출_금액", "연령대_50_매출_건수"},
	{"60대 이상", "연령대_60_이상_매출_금액", "연령대_60_이상_매출_건수"},
}

// The 17~21 band is four hours wide; the source schema defines it that way.
var hourSlices = []slice{
	{Label: "00~06", Revenue: "시간대_00~06_매출_금액"},
	{Label: "06~11", Revenue: "시간대_06~11_매출_금액"},
	{Label: "11~14", Revenue: "시간대_11~14_매출_금액"},
	{Label: "14~17", Revenue: "시간대_14~17_매출_금액"},
	{Label: "17~21", Revenue: "시간대_17~21_매출_금액"},
	{Label: "21~24", Revenue: "시간대_21~24_매출_금액"},
}

const quarterCount = 4

// salesNumericColumns lists every numeric sales column the aggregations read.
func salesNumericColumns() []string {
	cols := []string{
		ColYear, ColQuarter, ColRevenue, ColTransactions, ColStores,
		ColLat, ColLon, ColWeekday, ColWeekend,
	}
	for _, group := range [][]slice{genderSlices, daySlices, ageSlices, hourSlices} {
		for _, s := range group {
			cols = append(cols, s.Revenue)
			if s.Count != "" {
				cols = append(cols, s.Count)
			}
		}
	}
	return cols
}

func salesRequiredColumns() []string {
	return append([]string{ColDistrict, ColCategory}, salesNumericColumns()...)
}
