package importer_test

import (
	"bytes"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/importer"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var _ = Describe("Statement parsing", func() {
	Describe("DetectFormat", func() {
		It("maps extensions to parsers", func() {
			Expect(importer.DetectFormat("statement.CSV")).To(Equal(importer.FormatCSV))
			Expect(importer.DetectFormat("book.xlsx")).To(Equal(importer.FormatExcel))
			Expect(importer.DetectFormat("bank.qfx")).To(Equal(importer.FormatOFX))
		})

		It("rejects unknown extensions", func() {
			_, err := importer.DetectFormat("statement.pdf")
			Expect(internal.IsType(err, internal.ErrorTypeImportParse)).To(BeTrue())
		})
	})

	Describe("DetectMapping", func() {
		It("finds columns by common header names", func() {
			m := importer.DetectMapping([]string{"Posting Date", "Payee", "Transaction Amount"}, importer.Mapping{})
			Expect(m.Date).To(Equal("Posting Date"))
			Expect(m.Description).To(Equal("Payee"))
			Expect(m.Amount).To(Equal("Transaction Amount"))
		})

		It("keeps explicit columns", func() {
			m := importer.DetectMapping([]string{"Date", "When", "Amount", "Memo"}, importer.Mapping{Date: "When"})
			Expect(m.Date).To(Equal("When"))
		})

		It("falls back to debit and credit columns", func() {
			m := importer.DetectMapping([]string{"Date", "Details", "Withdrawal", "Deposit"}, importer.Mapping{})
			Expect(m.Amount).To(BeEmpty())
			Expect(m.Debit).To(Equal("Withdrawal"))
			Expect(m.Credit).To(Equal("Deposit"))
		})
	})

	Describe("ParseMapping", func() {
		It("reads field=column pairs", func() {
			m, err := importer.ParseMapping([]string{"date=Booked On", "description=Text"})
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Date).To(Equal("Booked On"))
			Expect(m.Description).To(Equal("Text"))
		})

		It("rejects unknown fields", func() {
			_, err := importer.ParseMapping([]string{"colour=Red"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ParseCSV", func() {
		It("reads signed amounts with currency symbols and separators", func() {
			input := "Date,Description,Amount\n" +
				"2024-01-15,STARBUCKS #123,-$4.50\n" +
				"2024-01-16,Rent,\"-1,200.00\"\n" +
				"2024-01-17,Refund,(3.00)\n"

			parsed, err := importer.ParseCSV(strings.NewReader(input), importer.Options{})

			Expect(err).NotTo(HaveOccurred())
			Expect(parsed.Transactions).To(HaveLen(3))
			Expect(parsed.Transactions[0].Amount.Equal(dec("-4.50"))).To(BeTrue())
			Expect(parsed.Transactions[0].Description).To(Equal("STARBUCKS #123"))
			Expect(parsed.Transactions[0].Row).To(Equal(2))
			Expect(parsed.Transactions[1].Amount.Equal(dec("-1200"))).To(BeTrue())
			Expect(parsed.Transactions[2].Amount.Equal(dec("-3"))).To(BeTrue())
		})

		It("sniffs semicolons and strips a byte order mark", func() {
			input := "\xEF\xBB\xBFdate;memo;amount\n15/01/2024;Bakery;-2.10\n"

			parsed, err := importer.ParseCSV(strings.NewReader(input), importer.Options{DateFormats: []string{"02/01/2006"}})

			Expect(err).NotTo(HaveOccurred())
			Expect(parsed.Transactions).To(HaveLen(1))
			Expect(parsed.Transactions[0].Date).To(Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local)))
		})

		It("skips zero rows and, on request, credits", func() {
			input := "Date,Description,Amount\n2024-01-15,Fee reversal,0.00\n2024-01-15,Salary,2500\n2024-01-15,Lunch,-12\n"

			parsed, err := importer.ParseCSV(strings.NewReader(input), importer.Options{SkipCredits: true})

			Expect(err).NotTo(HaveOccurred())
			Expect(parsed.Transactions).To(HaveLen(1))
			Expect(parsed.Skipped).To(ConsistOf(
				importer.Skip{Row: 2, Reason: importer.ReasonZero},
				importer.Skip{Row: 3, Reason: importer.ReasonCredit},
			))
		})

		It("names the malformed row", func() {
			input := "Date,Description,Amount\n2024-01-15,Lunch,-12\n2024-01-16,Dinner,abc\n"

			_, err := importer.ParseCSV(strings.NewReader(input), importer.Options{})

			Expect(err).To(MatchError(ContainSubstring("row 3")))
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeImportRow))
			Expect(appErr.ExitCode()).To(Equal(5))
		})

		It("skips malformed rows with SkipInvalid", func() {
			input := "Date,Description,Amount\nyesterday-ish,Lunch,-12\n2024-01-16,Dinner,-20\n"

			parsed, err := importer.ParseCSV(strings.NewReader(input), importer.Options{SkipInvalid: true})

			Expect(err).NotTo(HaveOccurred())
			Expect(parsed.Transactions).To(HaveLen(1))
			Expect(parsed.Skipped).To(HaveLen(1))
			Expect(parsed.Skipped[0].Reason).To(HavePrefix("invalid:"))
		})

		It("fails when required columns cannot be mapped", func() {
			_, err := importer.ParseCSV(strings.NewReader("Foo,Bar\n1,2\n"), importer.Options{})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeImportColumns))
		})

		It("combines debit and credit columns", func() {
			input := "Date,Details,Debit,Credit\n2024-01-15,Groceries,45.10,\n2024-01-16,Interest,,1.25\n"

			parsed, err := importer.ParseCSV(strings.NewReader(input), importer.Options{})

			Expect(err).NotTo(HaveOccurred())
			Expect(parsed.Transactions[0].Amount.Equal(dec("-45.10"))).To(BeTrue())
			Expect(parsed.Transactions[1].Amount.Equal(dec("1.25"))).To(BeTrue())
		})
	})

	Describe("ParseExcel", func() {
		workbook := func(rows [][]interface{}) *bytes.Buffer {
			f := excelize.NewFile()
			defer f.Close()
			for i, row := range rows {
				cell, err := excelize.CoordinatesToCellName(1, i+1)
				Expect(err).NotTo(HaveOccurred())
				Expect(f.SetSheetRow("Sheet1", cell, &row)).To(Succeed())
			}
			buf, err := f.WriteToBuffer()
			Expect(err).NotTo(HaveOccurred())
			return buf
		}

		It("reads the first sheet", func() {
			buf := workbook([][]interface{}{
				{"Date", "Merchant", "Amount", "Category"},
				{"2024-01-15", "Whole Foods", -54.2, "groceries"},
				{"2024-01-16", "Payroll", 1000, ""},
			})

			parsed, err := importer.ParseExcel(buf, importer.Options{})

			Expect(err).NotTo(HaveOccurred())
			Expect(parsed.Transactions).To(HaveLen(2))
			Expect(parsed.Transactions[0].Description).To(Equal("Whole Foods"))
			Expect(parsed.Transactions[0].Amount.Equal(dec("-54.2"))).To(BeTrue())
			Expect(parsed.Transactions[0].Category).To(Equal("groceries"))
			Expect(parsed.Transactions[0].Date).To(Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local)))
		})

		It("converts serial dates", func() {
			buf := workbook([][]interface{}{
				{"Date", "Description", "Amount"},
				{45306, "Taxi", -18},
			})

			parsed, err := importer.ParseExcel(buf, importer.Options{})

			Expect(err).NotTo(HaveOccurred())
			Expect(parsed.Transactions[0].Date).To(Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local)))
		})

		It("rejects input that is not a workbook", func() {
			_, err := importer.ParseExcel(strings.NewReader("not a zip"), importer.Options{})
			Expect(internal.IsType(err, internal.ErrorTypeImportParse)).To(BeTrue())
		})
	})

	Describe("ParseOFX", func() {
		sgml := `OFXHEADER:100
DATA:OFXSGML
VERSION:102

<OFX>
<BANKMSGSRSV1>
<STMTTRNRS>
<STMTRS>
<CURDEF>EUR
<BANKTRANLIST>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000.000[-5:EST]
<TRNAMT>-12.50
<NAME>CORNER CAFE
<MEMO>card 1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240116
<TRNAMT>100.00
<MEMO>Transfer in
</STMTTRN>
</BANKTRANLIST>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>
`

		It("reads SGML statements", func() {
			parsed, err := importer.ParseOFX(strings.NewReader(sgml), importer.Options{})

			Expect(err).NotTo(HaveOccurred())
			Expect(parsed.Transactions).To(HaveLen(2))
			first := parsed.Transactions[0]
			Expect(first.Description).To(Equal("CORNER CAFE"))
			Expect(first.Amount.Equal(dec("-12.50"))).To(BeTrue())
			Expect(first.Currency).To(Equal("EUR"))
			Expect(first.Date).To(Equal(time.Date(2024, 1, 15, 12, 0, 0, 0, time.Local)))
			Expect(parsed.Transactions[1].Description).To(Equal("Transfer in"))
		})

		It("reads XML statements", func() {
			xml := `<?xml version="1.0" encoding="UTF-8"?>
<?OFX OFXHEADER="200" VERSION="220"?>
<OFX><CREDITCARDMSGSRSV1><CCSTMTTRNRS><CCSTMTRS><CURDEF>USD</CURDEF><BANKTRANLIST>
<STMTTRN><DTPOSTED>20240110</DTPOSTED><TRNAMT>-30.00</TRNAMT><NAME>AMAZON MKTPLACE</NAME></STMTTRN>
</BANKTRANLIST></CCSTMTRS></CCSTMTTRNRS></CREDITCARDMSGSRSV1></OFX>`

			parsed, err := importer.ParseOFX(strings.NewReader(xml), importer.Options{SkipCredits: true})

			Expect(err).NotTo(HaveOccurred())
			Expect(parsed.Transactions).To(HaveLen(1))
			Expect(parsed.Transactions[0].Description).To(Equal("AMAZON MKTPLACE"))
			Expect(parsed.Transactions[0].Currency).To(Equal("USD"))
		})

		It("fails without an OFX element", func() {
			_, err := importer.ParseOFX(strings.NewReader("hello"), importer.Options{})
			Expect(internal.IsType(err, internal.ErrorTypeImportParse)).To(BeTrue())
		})
	})

	Describe("Detector", func() {
		day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local)

		It("matches near amounts, close dates and overlapping notes", func() {
			d := importer.NewDetector(1)
			d.Remember(dec("12.50"), "Starbucks", day)

			Expect(d.IsDuplicate(dec("-12.50"), "STARBUCKS #123", day.AddDate(0, 0, 1))).To(BeTrue())
			Expect(d.IsDuplicate(dec("12.51"), "starbucks", day)).To(BeTrue())
		})

		It("keeps distinct transactions apart", func() {
			d := importer.NewDetector(1)
			d.Remember(dec("12.50"), "Starbucks", day)

			Expect(d.IsDuplicate(dec("12.60"), "Starbucks", day)).To(BeFalse())
			Expect(d.IsDuplicate(dec("12.50"), "Peet's", day)).To(BeFalse())
			Expect(d.IsDuplicate(dec("12.50"), "Starbucks", day.AddDate(0, 0, 2))).To(BeFalse())
		})
	})
})
