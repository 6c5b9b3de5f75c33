package dataset

import "strings"

const sampleCSV = `Name,Age,Department,Salary,Years_Experience,Performance_Score
John Smith,28,Engineering,75000,3,8.5
Jane Doe,32,Marketing,65000,5,9.2
Mike Johnson,45,Engineering,95000,15,7.8
Sarah Wilson,29,Sales,55000,2,8.9
David Brown,38,Marketing,72000,8,8.1
Lisa Garcia,33,Engineering,82000,7,9.0
Tom Davis,41,Sales,68000,12,7.5
Emily Rodriguez,26,Engineering,70000,1,8.8
Chris Lee,35,Marketing,69000,6,8.3
Amy Taylor,30,Sales,58000,4,9.1
`

// Sample returns the built-in employee dataset.
func Sample() *Dataset {
	ds, _, err := Read(strings.NewReader(sampleCSV), "sample_employees.csv", DefaultOptions())
	if err != nil {
		panic("dataset: invalid built-in sample: " + err.Error())
	}
	return ds
}

// SampleReport returns the built-in dataset along with its clean report.
func SampleReport() (*Dataset, CleanReport) {
	ds, rep, err := Read(strings.NewReader(sampleCSV), "sample_employees.csv", DefaultOptions())
	if err != nil {
		panic("dataset: invalid built-in sample: " + err.Error())
	}
	return ds, rep
}
