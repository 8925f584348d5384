package blogservice

import (
	"github.com/sushihentaime/quill/internal/common"
)

func validateTitle(v *common.Validator, title string) {
	v.Check(v.NotBlank(title), "title", "must be provided")
	v.Check(v.CheckStringLength(title, 1, 250), "title", "must not be more than 250 characters long")
}

func validatePostInput(v *common.Validator, in PostInput) {
	validateTitle(v, in.Title)

	v.Check(v.NotBlank(in.Subtitle), "subtitle", "must be provided")
	v.Check(v.CheckStringLength(in.Subtitle, 1, 250), "subtitle", "must not be more than 250 characters long")

	v.Check(v.NotBlank(in.Body), "body", "must be provided")

	v.Check(in.ImgURL != "", "img_url", "must be provided")
	v.Check(len(in.ImgURL) <= 250, "img_url", "must not be more than 250 characters long")
	v.Check(v.IsURL(in.ImgURL), "img_url", "must be a valid http or https URL")
}

func validateComment(v *common.Validator, text string) {
	v.Check(v.NotBlank(text), "comment", "must be provided")
	v.Check(v.CheckStringLength(text, 1, 5000), "comment", "must not be more than 5000 characters long")
}

func validateInt(v *common.Validator, num int, name string) {
	v.Check(num > 0, name, "must be greater than zero")
}
