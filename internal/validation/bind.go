package validation

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

// BindAndValidate binds the JSON body into `out` and runs validation.
// On failure it writes the 400 response itself and returns an error so the
// handler can short-circuit. The wire shape is always {"status","message"};
// field-level details go to the log, not to the partner.
func BindAndValidate(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(out); err != nil {
		log.Printf("[webhook] malformed body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid payload"})
		return err
	}

	if err := v.Struct(out); err != nil {
		if ve, ok := err.(validatorv10.ValidationErrors); ok {
			for _, fe := range ve {
				log.Printf("[webhook] validation failed: %s (%s)", fe.StructNamespace(), fe.Tag())
			}
		}
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid payload"})
		return err
	}
	return nil
}
