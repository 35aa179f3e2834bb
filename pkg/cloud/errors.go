package cloud

import (
	"errors"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	domerr "github.com/analytical-platform/controlpanel/pkg/domain/errors"
)

// classify maps an SDK failure into the domain error taxonomy.
// Throttling and 5xx are retryable; validation and denial are not.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "Throttling", "ThrottlingException", "RequestLimitExceeded", "SlowDown", "TooManyRequestsException":
			return domerr.NewCloudError(domerr.CloudThrottled, true, err)
		case "AccessDenied", "AccessDeniedException", "UnauthorizedOperation":
			return domerr.NewCloudError(domerr.CloudDenied, false, err)
		case "NoSuchEntity", "NoSuchBucket", "NoSuchLifecycleConfiguration", "NotFoundException":
			return domerr.NewCloudError(domerr.CloudNotFound, false, err)
		case "EntityAlreadyExists", "BucketAlreadyExists", "BucketAlreadyOwnedByYou":
			return domerr.NewCloudError(domerr.CloudConflict, false, err)
		case "ValidationError", "InvalidBucketName", "InvalidInput", "MalformedPolicyDocument":
			return domerr.NewCloudError(domerr.CloudValidation, false, err)
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && 500 <= respErr.HTTPStatusCode() {
		return domerr.NewCloudError(domerr.CloudTransient, true, err)
	}

	return domerr.NewCloudError(domerr.CloudTransient, true, err)
}

// errorCode extracts the provider error code, or "".
func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
