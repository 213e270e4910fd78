package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/noah-isme/ccrm-api/internal/models"
	"github.com/noah-isme/ccrm-api/internal/service"
)

const dateLayout = "2006-01-02"

func newStudentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "students", Short: "Manage student records"}

	var req service.CreateStudentRequest
	add := mutating(&cobra.Command{
		Use:   "add",
		Short: "Create a student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			student, err := a.students.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created student %s (%s)\n", student.ID, student.RegistrationNumber)
			return nil
		},
	})
	add.Flags().StringVar(&req.ID, "id", "", "student id (generated when empty)")
	add.Flags().StringVar(&req.RegistrationNumber, "reg", "", "registration number")
	add.Flags().StringVar(&req.FullName, "name", "", "full name")
	add.Flags().StringVar(&req.Email, "email", "", "email address")
	add.Flags().StringVar(&req.PhoneNumber, "phone", "", "phone number")

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List students",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := models.StudentFilter{}
			if !all {
				active := true
				filter.Active = &active
			}
			students, err := a.students.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			printStudents(cmd.OutOrStdout(), students)
			return nil
		},
	}
	list.Flags().BoolVar(&all, "all", false, "include inactive students")

	deactivate := mutating(&cobra.Command{
		Use:   "deactivate <student-id>",
		Short: "Mark a student inactive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.students.Deactivate(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deactivated student %s\n", args[0])
			return nil
		},
	})

	search := &cobra.Command{
		Use:   "search <field> <op> <value>",
		Short: "Find students by field, e.g. full_name CONTAINS lee",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := service.ParseStudentSearch(models.SearchRequest{Field: args[0], Operator: args[1], Value: args[2]})
			if err != nil {
				return err
			}
			printStudents(cmd.OutOrStdout(), a.students.Search(cmd.Context(), criteria))
			return nil
		},
	}

	cmd.AddCommand(add, list, deactivate, search)
	return cmd
}

func printStudents(w io.Writer, students []models.Student) {
	for _, s := range students {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\tgpa=%.2f\tactive=%t\n",
			s.ID, s.RegistrationNumber, s.FullName, s.Email, service.RoundGPA(s.CurrentGPA), s.Active)
	}
}

func newCoursesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "courses", Short: "Manage the course catalogue"}

	var req service.CreateCourseRequest
	add := mutating(&cobra.Command{
		Use:   "add",
		Short: "Create a course",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			course, err := a.courses.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created course %s (%s, %d credits)\n", course.ID, course.Code, course.CreditHours)
			return nil
		},
	})
	add.Flags().StringVar(&req.ID, "id", "", "course id")
	add.Flags().StringVar(&req.Code, "code", "", "course code")
	add.Flags().StringVar(&req.Title, "title", "", "course title")
	add.Flags().IntVar(&req.CreditHours, "credits", 0, "credit hours")
	add.Flags().StringVar(&req.Semester, "semester", "", "SPRING, SUMMER or FALL")
	add.Flags().StringVar(&req.Department, "department", "", "department, e.g. COMPUTER_SCIENCE")
	add.Flags().StringVar(&req.InstructorID, "instructor", "", "owning instructor id")
	add.Flags().StringVar(&req.Description, "description", "", "course description")

	var department, semester string
	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List courses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter models.CourseFilter
			var err error
			if department != "" {
				if filter.Department, err = models.ParseDepartment(department); err != nil {
					return err
				}
			}
			if semester != "" {
				if filter.Semester, err = models.ParseSemester(semester); err != nil {
					return err
				}
			}
			if !all {
				active := true
				filter.Active = &active
			}
			courses, err := a.courses.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			for _, c := range courses {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d\t%s\t%s\tactive=%t\n",
					c.ID, c.Code, c.Title, c.CreditHours, c.Semester, c.Department, c.Active)
			}
			return nil
		},
	}
	list.Flags().StringVar(&department, "department", "", "filter by department")
	list.Flags().StringVar(&semester, "semester", "", "filter by semester")
	list.Flags().BoolVar(&all, "all", false, "include inactive courses")

	deactivate := mutating(&cobra.Command{
		Use:   "deactivate <course-id>",
		Short: "Mark a course inactive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.courses.Deactivate(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deactivated course %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(add, list, deactivate)
	return cmd
}

func newInstructorsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "instructors", Short: "Manage teaching staff"}

	var req service.CreateInstructorRequest
	add := mutating(&cobra.Command{
		Use:   "add",
		Short: "Create an instructor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			instructor, err := a.instructors.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created instructor %s (%s)\n", instructor.ID, instructor.EmployeeID)
			return nil
		},
	})
	add.Flags().StringVar(&req.ID, "id", "", "instructor id (generated when empty)")
	add.Flags().StringVar(&req.EmployeeID, "employee-id", "", "employee id")
	add.Flags().StringVar(&req.FullName, "name", "", "full name")
	add.Flags().StringVar(&req.Email, "email", "", "email address")
	add.Flags().StringVar(&req.Department, "department", "", "department")
	add.Flags().StringVar(&req.Title, "title", "", "academic title")

	assign := mutating(&cobra.Command{
		Use:   "assign <instructor-id> <course-id>",
		Short: "Assign a course to an instructor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.instructors.AssignCourse(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "assigned %s to %s\n", args[1], args[0])
			return nil
		},
	})

	list := &cobra.Command{
		Use:   "list",
		Short: "List instructors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			instructors, err := a.instructors.List(cmd.Context(), nil)
			if err != nil {
				return err
			}
			for _, i := range instructors {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\tcourses=%v\tactive=%t\n",
					i.ID, i.EmployeeID, i.FullName, i.Department, i.AssignedCourseIDs, i.Active)
			}
			return nil
		},
	}

	cmd.AddCommand(add, assign, list)
	return cmd
}

func newEnrollCmd(a *app) *cobra.Command {
	return mutating(&cobra.Command{
		Use:   "enroll <student-id> <course-id>",
		Short: "Enroll a student in a course",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			enrollment, err := a.enrollments.Enroll(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			load, _ := a.enrollments.CreditLoad(cmd.Context(), args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "enrolled %s in %s (enrollment %s, load %d/%d)\n",
				args[0], args[1], enrollment.ID, load, a.enrollments.MaxCredits())
			return nil
		},
	})
}

func newWithdrawCmd(a *app) *cobra.Command {
	return mutating(&cobra.Command{
		Use:   "withdraw <student-id> <course-id>",
		Short: "Withdraw a student from a course",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.enrollments.Withdraw(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "withdrew %s from %s\n", args[0], args[1])
			return nil
		},
	})
}

func newGradeCmd(a *app) *cobra.Command {
	return mutating(&cobra.Command{
		Use:   "grade <student-id> <course-id> <score>",
		Short: "Record a numeric grade between 0 and 100",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("score must be a number: %w", err)
			}
			enrollment, err := a.enrollments.RecordGrade(cmd.Context(), args[0], args[1], score)
			if err != nil {
				return err
			}
			student, err := a.students.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "graded %s in %s: %.1f (%s), gpa %.2f\n",
				args[0], args[1], enrollment.NumericGrade, enrollment.LetterGrade, service.RoundGPA(student.CurrentGPA))
			return nil
		},
	})
}

func newCreditsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "credits <student-id>",
		Short: "Show a student's active credit load",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			load, err := a.enrollments.CreditLoad(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			max := a.enrollments.MaxCredits()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d of %d credits (%d remaining)\n", args[0], load, max, max-load)
			return nil
		},
	}
}
